// Package checkout holds the checkout-extension logic: while Sale Mode is
// on it removes every applied discount code (gift cards are a separate list
// and never reach it) and shows an informational banner.
package checkout

import (
	"strconv"
	"strings"
)

// DefaultMessage is shown when sale_message is empty or unset.
const DefaultMessage = "Sitewide sale is active — discount codes are disabled. Gift cards still apply."

// Settings keys as configured in the checkout editor.
const (
	SettingSaleModeEnabled = "sale_mode_enabled"
	SettingSaleMessage     = "sale_message"
)

// ChangeRemoveDiscountCode is the only change type this extension issues.
const ChangeRemoveDiscountCode = "removeDiscountCode"

// SaleModeConfig is the merchant controlled setting pair.
type SaleModeConfig struct {
	Enabled bool
	Message string
}

// BannerMessage returns the configured message or DefaultMessage.
func (c SaleModeConfig) BannerMessage() string {
	if strings.TrimSpace(c.Message) == "" {
		return DefaultMessage
	}
	return c.Message
}

// DiscountEntry is one applied discount code.
type DiscountEntry struct {
	Code string `json:"code"`
}

// PermissionState gates whether removals may be requested at all.
type PermissionState struct {
	CanUpdateDiscountCodes bool
}

// Instructions is the host's permission payload,
// {"discounts":{"canUpdateDiscountCodes":bool}}.
type Instructions struct {
	Discounts struct {
		CanUpdateDiscountCodes bool `json:"canUpdateDiscountCodes"`
	} `json:"discounts"`
}

func (i Instructions) Permissions() PermissionState {
	return PermissionState{CanUpdateDiscountCodes: i.Discounts.CanUpdateDiscountCodes}
}

// DiscountCodeChange is the removal request sent to the host.
type DiscountCodeChange struct {
	Type string `json:"type"`
	Code string `json:"code"`
}

// RemoveCode builds a removeDiscountCode request.
func RemoveCode(code string) DiscountCodeChange {
	return DiscountCodeChange{Type: ChangeRemoveDiscountCode, Code: code}
}

// DecodeSettings reads the raw settings map delivered by the host. Missing
// keys leave Sale Mode off and the message empty.
func DecodeSettings(raw map[string]any) SaleModeConfig {
	cfg := SaleModeConfig{Enabled: truthy(raw[SettingSaleModeEnabled])}
	if s, ok := raw[SettingSaleMessage].(string); ok {
		cfg.Message = s
	}
	return cfg
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return false
	}
}

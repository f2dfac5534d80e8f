package providers

import (
	"fmt"
	"strconv"
	"strings"
)

// ConfigString returns the trimmed string value for key from provider.Config or a fallback.
func ConfigString(cfg Provider, key, fallback string) string {
	if cfg.Config != nil {
		if raw, ok := cfg.Config[key]; ok {
			if val, ok := raw.(string); ok {
				if trimmed := strings.TrimSpace(val); trimmed != "" {
					return trimmed
				}
			}
		}
	}
	return fallback
}

// ConfigInt returns a positive integer value for key, accepting YAML ints and numeric strings.
func ConfigInt(cfg Provider, key string, fallback int) int {
	if cfg.Config == nil {
		return fallback
	}
	var n int
	switch v := cfg.Config[key].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fallback
		}
		n = parsed
	default:
		return fallback
	}
	if n <= 0 {
		return fallback
	}
	return n
}

// ConfigBool reports whether key is set to true (bool or "true"/"1").
func ConfigBool(cfg Provider, key string) bool {
	if cfg.Config == nil {
		return false
	}
	switch v := cfg.Config[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	default:
		return false
	}
}

const (
	ConfigUserAgentKey      = "user_agent"
	ConfigAcceptKey         = "accept"
	ConfigAcceptLanguageKey = "accept_language"
	ConfigCacheControlKey   = "cache_control"
	ConfigAPIKeyKey         = "api_key"
	ConfigCategoryKey       = "category"
	ConfigPageSizeKey       = "page_size"
	ConfigDatedQueryKey     = "dated_query"
	ConfigTimezoneKey       = "timezone"
	ConfigMaxSitemapsKey    = "max_sitemaps"
)

// Headers builds the common request headers from a provider config (skips empty values).
func Headers(cfg Provider) map[string]string {
	headers := make(map[string]string, 5)

	if v := ConfigString(cfg, ConfigUserAgentKey, ""); v != "" {
		headers["User-Agent"] = v
	}
	if v := ConfigString(cfg, ConfigAcceptKey, ""); v != "" {
		headers["Accept"] = v
	}
	if v := ConfigString(cfg, ConfigAcceptLanguageKey, ""); v != "" {
		headers["Accept-Language"] = v
	}
	if v := ConfigString(cfg, ConfigCacheControlKey, ""); v != "" {
		headers["Cache-Control"] = v
	}

	return headers
}

// requireString returns the config value for key or an error naming the provider.
func requireString(cfg Provider, key string) (string, error) {
	v := ConfigString(cfg, key, "")
	if v == "" {
		return "", fmt.Errorf("provider %q config.%s is required", cfg.ID, key)
	}
	return v, nil
}

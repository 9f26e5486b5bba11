package restapi

import "strings"

// The upload endpoints have answered in several shapes over time; these
// helpers accept all of them.

func singleURL(data any) (string, bool) {
	switch v := data.(type) {
	case string:
		return v, v != ""
	case map[string]any:
		if truthy(v["success"]) && v["data"] != nil {
			switch d := v["data"].(type) {
			case string:
				return d, d != ""
			case map[string]any:
				return firstString(d, "url", "imageUrl", "path")
			}
			return "", false
		}
		return firstString(v, "url", "imageUrl", "path")
	}
	return "", false
}

func multipleURLs(data any) []string {
	switch v := data.(type) {
	case []any:
		return itemURLs(v)
	case map[string]any:
		if truthy(v["success"]) && v["data"] != nil {
			switch d := v["data"].(type) {
			case []any:
				return itemURLs(d)
			case map[string]any:
				if urls, ok := d["urls"].([]any); ok {
					return itemURLs(urls)
				}
				if u, ok := firstString(d, "url"); ok {
					return []string{u}
				}
			}
			return nil
		}
		if urls, ok := v["urls"].([]any); ok {
			return itemURLs(urls)
		}
	}
	return nil
}

// itemURLs maps each item to a URL. Items without one become "" so the
// result keeps its positions; the batcher treats blanks as invalid.
func itemURLs(items []any) []string {
	out := make([]string, len(items))
	for i, item := range items {
		switch it := item.(type) {
		case string:
			out[i] = it
		case map[string]any:
			out[i], _ = firstString(it, "url", "imageUrl", "path")
		}
	}
	return out
}

func firstString(obj map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case nil:
		return false
	case string:
		return b != ""
	case float64:
		return b != 0
	}
	return true
}

func errorMessage(data any, action string) string {
	if obj, ok := data.(map[string]any); ok {
		if e, ok := obj["error"].(map[string]any); ok {
			if msg, ok := firstString(e, "message"); ok {
				return msg
			}
		}
		if msg, ok := firstString(obj, "message"); ok {
			return msg
		}
	}
	if action == "delete" {
		return "Delete failed"
	}
	return "Upload failed"
}

var tokenExpiredMarkers = []string{
	"token expired",
	"token has expired",
	"jwt expired",
	"invalid token",
	"token is invalid",
	"unauthorized",
}

func isTokenExpired(msg string) bool {
	m := strings.ToLower(msg)
	for _, marker := range tokenExpiredMarkers {
		if strings.Contains(m, marker) {
			return true
		}
	}
	return false
}

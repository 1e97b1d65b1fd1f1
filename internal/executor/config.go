package executor

// Хелперы для извлечения значений из config задачи.
// Config приходит из JSON/YAML, поэтому числа могут быть
// как float64, так и int.

// getString извлекает строку из map с default значением.
func getString(m map[string]any, key, defaultVal string) string {
	if val, ok := m[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

// getInt извлекает целое из map с default значением.
func getInt(m map[string]any, key string, defaultVal int) int {
	if val, ok := m[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return defaultVal
}

// getBool извлекает bool из map с default значением.
func getBool(m map[string]any, key string, defaultVal bool) bool {
	if val, ok := m[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// getSlice извлекает список произвольных значений из map.
func getSlice(m map[string]any, key string) []any {
	if val, ok := m[key]; ok {
		if s, ok := val.([]any); ok {
			return s
		}
	}
	return nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

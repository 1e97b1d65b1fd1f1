package engine

import "strings"

// Substitute подставляет переменные run в строку.
//
// Плейсхолдер имеет вид ${name}. Неизвестные плейсхолдеры
// остаются как есть — это осознанное поведение, чтобы задача
// могла получить литеральный "${...}" в конфигурации.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(text, "${") {
		return text
	}
	result := text
	for key, value := range vars {
		result = strings.ReplaceAll(result, "${"+key+"}", value)
	}
	return result
}

// SubstituteConfig возвращает копию конфигурации задачи с подставленными
// переменными во всех строковых значениях, рекурсивно по вложенным
// map и slice. Исходная конфигурация не модифицируется — TaskSpec
// неизменяем по контракту.
func SubstituteConfig(config map[string]any, vars map[string]string) map[string]any {
	if config == nil {
		return nil
	}
	out := make(map[string]any, len(config))
	for key, value := range config {
		out[key] = substituteValue(value, vars)
	}
	return out
}

// substituteValue обрабатывает одно значение конфигурации.
func substituteValue(value any, vars map[string]string) any {
	switch v := value.(type) {
	case string:
		return Substitute(v, vars)
	case map[string]any:
		return SubstituteConfig(v, vars)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = substituteValue(item, vars)
		}
		return out
	default:
		// Числа, bool, nil — подстановка не нужна.
		return value
	}
}

// env.go — источник конфигурационных значений для фичефлагов.
// Значения читаются при каждом обращении (без кэширования): сначала из
// окружения процесса, затем из внедрённых значений рантайма, затем default.
// Поведение одинаково для любого контекста вызова — вызывающий код не знает,
// откуда пришло значение.
package rollout

import "os"

// Source — один источник значений конфигурации.
type Source interface {
	// Lookup возвращает значение ключа и признак его наличия.
	Lookup(key string) (string, bool)
}

// ProcessEnv — источник из переменных окружения процесса.
type ProcessEnv struct{}

// Lookup читает переменную окружения процесса.
func (ProcessEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// StaticValues — внедрённый набор значений (конфигурация рантайма, тесты).
type StaticValues map[string]string

// Lookup возвращает значение из набора.
func (s StaticValues) Lookup(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Env — цепочка источников конфигурации фичефлагов.
// Источники опрашиваются по порядку; первый нашедший ключ побеждает.
type Env struct {
	sources []Source
}

// NewEnv создаёт цепочку источников. Без аргументов используется
// только окружение процесса.
func NewEnv(sources ...Source) *Env {
	if len(sources) == 0 {
		sources = []Source{ProcessEnv{}}
	}
	return &Env{sources: sources}
}

// Get возвращает значение ключа из первого источника, где оно задано,
// или defaultVal, если ключ не найден нигде. Чтение без побочных эффектов.
// Пустая строка считается отсутствием значения — как в getEnvDefault
// конфигурации сервера.
func (e *Env) Get(key, defaultVal string) string {
	for _, src := range e.sources {
		if v, ok := src.Lookup(key); ok && v != "" {
			return v
		}
	}
	return defaultVal
}

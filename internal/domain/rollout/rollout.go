// Пакет rollout — движок постепенного развёртывания unified UI.
// Решает для каждого пользователя, показывать ли новый интерфейс:
// глобальный выключатель, ограничение по ролям, процентное развёртывание
// через стабильный хэш, список бета-тестеров.
//
// Конфигурация пересобирается из источников окружения при каждой оценке —
// без кэширования и без персистентности. Все операции — чистые синхронные
// вычисления над уже разрешёнными строками.
package rollout

import (
	"strconv"
	"strings"
)

// Ключи конфигурации фичефлага unified UI.
const (
	// EnvEnabled — глобальный выключатель ("true" — включено).
	EnvEnabled = "SD_FEATURE_UNIFIED_USERS_ENABLED"
	// EnvRolloutPercent — процент развёртывания 0-100 (по умолчанию 100).
	EnvRolloutPercent = "SD_FEATURE_UNIFIED_USERS_ROLLOUT_PERCENT"
	// EnvTargetUsers — целевая аудитория: all | beta | список ролей через запятую.
	EnvTargetUsers = "SD_FEATURE_UNIFIED_USERS_TARGET_USERS"
	// EnvBetaTesters — список ID бета-тестеров через запятую.
	EnvBetaTesters = "SD_FEATURE_UNIFIED_USERS_BETA_TESTERS"
)

// TargetKind — вид целевой аудитории фичефлага.
// Закрытый вариант, разбирается один раз при сборке конфигурации,
// а не при каждой проверке роли.
type TargetKind int

const (
	// TargetAll — фича доступна всем ролям.
	TargetAll TargetKind = iota
	// TargetBeta — фича доступна только бета-тестерам.
	TargetBeta
	// TargetRoles — фича доступна перечисленным ролям.
	TargetRoles
)

// Target — целевая аудитория фичефлага.
type Target struct {
	// Kind — вид аудитории.
	Kind TargetKind
	// Roles — множество ролей (upper case), только для TargetRoles.
	Roles map[string]bool
}

// Contains проверяет, входит ли роль в целевую аудиторию TargetRoles.
// Для других видов аудитории не используется.
func (t Target) Contains(role string) bool {
	return t.Roles[strings.ToUpper(strings.TrimSpace(role))]
}

// ParseTarget разбирает строку аудитории в закрытый вариант.
// "all" и "beta" распознаются без учёта регистра; всё остальное —
// список ролей через запятую, нормализованный к upper case.
func ParseTarget(s string) Target {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return Target{Kind: TargetAll}
	case "beta":
		return Target{Kind: TargetBeta}
	}

	roles := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			roles[part] = true
		}
	}
	return Target{Kind: TargetRoles, Roles: roles}
}

// Config — конфигурация фичефлага на момент одной оценки.
// Неизменяема в рамках оценки; пересобирается из окружения при каждом чтении.
type Config struct {
	// EnabledGlobally — глобальный выключатель.
	EnabledGlobally bool
	// RolloutPercent — процент развёртывания 0-100.
	RolloutPercent int
	// Target — целевая аудитория.
	Target Target
	// BetaTesters — множество ID бета-тестеров.
	BetaTesters map[string]bool
}

// Verdict — результат оценки фичефлага для пользователя.
// Производное значение, нигде не сохраняется.
type Verdict struct {
	// GlobalEnabled — включён ли флаг глобально.
	GlobalEnabled bool
	// UserEnabled — включён ли флаг для конкретного пользователя.
	UserEnabled bool
	// Enabled — итог: GlobalEnabled && UserEnabled.
	Enabled bool
}

// Engine — движок оценки фичефлага. Не хранит состояния между вызовами.
type Engine struct {
	env *Env
}

// NewEngine создаёт движок с указанным источником конфигурации.
// env == nil — используется окружение процесса.
func NewEngine(env *Env) *Engine {
	if env == nil {
		env = NewEnv()
	}
	return &Engine{env: env}
}

// EnabledGlobally возвращает состояние глобального выключателя.
// Включено только при строковом значении ровно "true"; иначе выключено
// (fail-closed).
func (e *Engine) EnabledGlobally() bool {
	return e.env.Get(EnvEnabled, "false") == "true"
}

// Config собирает конфигурацию фичефлага из источников окружения.
// Неразбираемый процент трактуется как 100: после включения глобального
// выключателя фича по умолчанию открыта (задокументированный выбор,
// закреплён тестом). Значения вне 0-100 приводятся к границам.
func (e *Engine) Config() Config {
	percent := 100
	if n, err := strconv.Atoi(strings.TrimSpace(e.env.Get(EnvRolloutPercent, "100"))); err == nil {
		percent = n
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	return Config{
		EnabledGlobally: e.EnabledGlobally(),
		RolloutPercent:  percent,
		Target:          ParseTarget(e.env.Get(EnvTargetUsers, "all")),
		BetaTesters:     parseIDSet(e.env.Get(EnvBetaTesters, "")),
	}
}

// EnabledForUser решает, включена ли фича для пользователя.
// Порядок проверок:
//  1. глобальный выключатель — выключен ⇒ false;
//  2. аудитория TargetBeta — решает только членство в списке бета-тестеров;
//  3. аудитория TargetRoles при заданной роли — роль вне списка ⇒ false;
//  4. процентный гейт — bucket(userID) >= процента ⇒ false;
//  5. непустой список бета-тестеров — членство в нём ЕДИНСТВЕННЫЙ
//     определяющий фактор, независимо от результата шага 4. Поведение
//     унаследовано от исходной реализации и закреплено тестами —
//     не «чинить» без подтверждения продукта.
func (e *Engine) EnabledForUser(userID, role string) bool {
	if !e.EnabledGlobally() {
		return false
	}

	cfg := e.Config()

	if cfg.Target.Kind == TargetBeta {
		// Пустой список бета-тестеров — фича не включена никому.
		return cfg.BetaTesters[userID]
	}

	if cfg.Target.Kind == TargetRoles && role != "" && !cfg.Target.Contains(role) {
		return false
	}

	pass := true
	if cfg.RolloutPercent < 100 {
		pass = Bucket(userID) < cfg.RolloutPercent
	}

	if len(cfg.BetaTesters) > 0 {
		return cfg.BetaTesters[userID]
	}

	return pass
}

// Evaluate возвращает полный вердикт для пользователя.
// Инвариант: Enabled == GlobalEnabled && UserEnabled.
func (e *Engine) Evaluate(userID, role string) Verdict {
	global := e.EnabledGlobally()
	user := false
	if global {
		user = e.EnabledForUser(userID, role)
	}
	return Verdict{
		GlobalEnabled: global,
		UserEnabled:   user,
		Enabled:       global && user,
	}
}

// Bucket возвращает стабильную корзину 0-99 для пользователя.
// Детерминированный 32-битный знаковый rolling hash: h = h*31 + код символа,
// с переполнением по модулю 2^32, затем abs(h) mod 100. Один и тот же ID
// всегда попадает в одну и ту же корзину — пользователь не «мигает» между
// старым и новым интерфейсом от запроса к запросу.
func Bucket(userID string) int {
	var h int32
	for _, r := range userID {
		h = h*31 + r
	}
	// Через int64 — abs(MinInt32) не представим в int32.
	b := int64(h)
	if b < 0 {
		b = -b
	}
	return int(b % 100)
}

// parseIDSet разбирает список ID через запятую в множество.
// Пробелы убираются, пустые элементы отбрасываются.
func parseIDSet(s string) map[string]bool {
	if s == "" {
		return nil
	}
	set := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			set[part] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

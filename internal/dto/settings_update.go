package dto

// SettingsUpdate изменение настроек комиссии, приходит из процесса управления через Кафку
// nil поле - значение не меняется
type SettingsUpdate struct {
	FeeRate      *float64 `json:"feeRate,omitempty"`      // доля шар на fee-кошелек прокси
	FeeAlgorithm *string  `json:"feeAlgorithm,omitempty"` // deterministic | probabilistic
	DevRate      *float64 `json:"devRate,omitempty"`      // доля шар разработчика
}

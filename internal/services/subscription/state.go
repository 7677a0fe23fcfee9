package subscription

import (
	"strings"

	"github.com/magabrotheeeer/examprep/internal/models"
)

// GiftCodeLength длина подарочного кода.
const GiftCodeLength = 12

var durationDays = map[string]int{
	"1M": 30,
	"6M": 180,
	"1Y": 365,
}

// DurationDays переводит код срока плана в число дней.
func DurationDays(code string) (int, error) {
	days, ok := durationDays[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return 0, models.NewError(models.KindInvalidInput, "unknown plan duration %q", code)
	}
	return days, nil
}

// NormalizeGiftCode проверяет формат кода и приводит его к верхнему регистру.
func NormalizeGiftCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != GiftCodeLength {
		return "", models.NewError(models.KindInvalidInput, "invalid gift code format")
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", models.NewError(models.KindInvalidInput, "invalid gift code format")
		}
	}
	return code, nil
}

package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// farm ids look like DE_2024_5f0c6a3e-5d1b-4b7a-9a57-0d7c1b8e2f10
var farmIdPattern = regexp.MustCompile(`^[A-Z]{2}_[0-9]{4}_[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

func IsValidFarmId(farmId string) bool {
	return farmIdPattern.MatchString(farmId)
}

// NewFarmId builds a CC_YYYY_<uuid> farm identifier.
func NewFarmId(countryCode string, year int) (string, error) {
	farmId := fmt.Sprintf("%s_%04d_%s", strings.ToUpper(strings.TrimSpace(countryCode)), year, uuid.NewString())
	if !IsValidFarmId(farmId) {
		return "", fmt.Errorf("%w: %s", ErrorInvalidFarmId, farmId)
	}
	return farmId, nil
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	// Remove any whitespace and check for empty strings
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}

	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return dec, nil
}

// formatted numbers: optional currency prefix, optional sign, digits with
// optional comma thousands grouping, one '.' decimal separator and an optional
// unit suffix separated by whitespace ("12 t/ha") or a bare '%'.
var decimalPattern = regexp.MustCompile(`^(?:(?:[A-Za-z]{3}|[€$£])\s*)?([+-])?\s*(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?(?:\s*%|\s+[A-Za-z][A-Za-z/]*)?$`)

// UnmarshalDecimal accepts the numeric shapes form inputs produce:
// JSON numbers, Go numbers and user-formatted strings like "1,250.50",
// "EUR 20,000" or "-3 t". Anything else, "1e3" or "3-4" included, is an error.
func UnmarshalDecimal(i interface{}) (decimal.Decimal, error) {
	switch v := i.(type) {
	case decimal.Decimal:
		return v, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case json.Number:
		return ParseDecimal(v.String())
	case string:
		m := decimalPattern.FindStringSubmatch(strings.TrimSpace(v))
		if m == nil {
			return decimal.Zero, fmt.Errorf("invalid value %q", v)
		}
		sign := m[1]
		if sign == "+" {
			sign = ""
		}
		return ParseDecimal(sign + strings.ReplaceAll(m[2], ",", "") + m[3])
	default:
		return decimal.Zero, fmt.Errorf("invalid value %v", i)
	}
}

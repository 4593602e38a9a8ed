package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePastedText(t *testing.T) {
	assert.NoError(t, ValidatePastedText("2026-01-10\tAcme\tCoilA\t5MM\t1,000"))
	assert.ErrorIs(t, ValidatePastedText(strings.Repeat("a", MaxPastedTextLength+1)), ErrValidationFailed)
	assert.ErrorIs(t, ValidatePastedText("bad \xff byte"), ErrValidationFailed)
	assert.ErrorIs(t, ValidatePastedText("ok\n<script>alert(1)</script>"), ErrValidationFailed)
}

func TestSanitizePlainTextKeepsAmpersand(t *testing.T) {
	assert.Equal(t, "S&T 철강", SanitizePlainText("S&T 철강"))
	assert.Equal(t, "Acme", SanitizePlainText("<b>Acme</b>\x00"))
}

func TestValidateSQLIdentifier(t *testing.T) {
	assert.NoError(t, ValidateSQLIdentifier("sales_records"))
	assert.Error(t, ValidateSQLIdentifier("sales_records; drop"))
	assert.Error(t, ValidateSQLIdentifier("Work"))
}

func TestValidateIntString(t *testing.T) {
	n, err := ValidateIntString(" 12 ", "month", 1, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = ValidateIntString("13", "month", 1, 12)
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = ValidateIntString("x", "month", 1, 12)
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("boss@ohsung.kr"))
	assert.Error(t, ValidateEmail("boss"))
	assert.Error(t, ValidateEmail(""))
}

func TestValidateFileContentByMagicBytes(t *testing.T) {
	detected, err := ValidateFileContentByMagicBytes(strings.NewReader("날짜\t거래처\n"))
	require.NoError(t, err)
	assert.Equal(t, "text/plain", detected)

	_, err = ValidateFileContentByMagicBytes(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = ValidateFileContentByMagicBytes(strings.NewReader("\x00\x01\x02binary"))
	assert.Error(t, err)
}

package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCredit(t *testing.T) {
	assert.True(t, IsCredit(RawTransaction{Direction: "+"}))
	assert.True(t, IsCredit(RawTransaction{CreditAmount: "500.000"}))
	assert.True(t, IsCredit(RawTransaction{Direction: "-", CreditAmount: "100"}))
	assert.False(t, IsCredit(RawTransaction{Direction: "-", DebitAmount: "250.000"}))
	assert.False(t, IsCredit(RawTransaction{}))
	assert.False(t, IsCredit(RawTransaction{CreditAmount: "   "}))
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, int64(123456700), ParseAmount("1.234.567,00"))
	assert.Equal(t, int64(500000), ParseAmount("500.000"))
	assert.Equal(t, int64(500000), ParseAmount("500,000 VND"))
	assert.Equal(t, int64(0), ParseAmount(""))
	assert.Equal(t, int64(0), ParseAmount("abc"))
	assert.Equal(t, int64(42), ParseAmount("4a2"))
}

func TestExtractTransferMessageMarker(t *testing.T) {
	message, confidence := ExtractTransferMessage("MBVCB.123456.NGUYEN VAN A chuyen tien ung ho.CT tu 0123")
	assert.Equal(t, ConfidenceMarker, confidence)
	assert.Equal(t, "NGUYEN VAN A chuyen tien", message)
}

func TestExtractTransferMessageMarkerCaseInsensitive(t *testing.T) {
	message, confidence := ExtractTransferMessage("ABC.TRAN B CHUYEN TIEN qua MB")
	assert.Equal(t, ConfidenceMarker, confidence)
	assert.Equal(t, "TRAN B CHUYEN TIEN", message)
}

func TestExtractTransferMessageHeuristicFallback(t *testing.T) {
	message, confidence := ExtractTransferMessage("MBVCB.tu NGUYEN den tk 999")
	assert.Equal(t, ConfidenceHeuristic, confidence)
	assert.Equal(t, "NGUYEN", message)
}

func TestExtractTransferMessageRawFallback(t *testing.T) {
	raw := "no markers here at all"
	message, confidence := ExtractTransferMessage(raw)
	assert.Equal(t, ConfidenceRaw, confidence)
	assert.Equal(t, raw, message)
}

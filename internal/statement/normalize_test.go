package statement

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fraction int
		want     int64
		wantErr  bool
	}{
		{name: "plain", raw: "15000", fraction: 0, want: 15000},
		{name: "thousands separators", raw: "1,234,567", fraction: 0, want: 1234567},
		{name: "won symbol", raw: "₩15,000", fraction: 0, want: 15000},
		{name: "won suffix", raw: "-4,500원", fraction: 0, want: -4500},
		{name: "dollars to cents", raw: "$ 25.50", fraction: 2, want: 2550},
		{name: "accounting negative", raw: "(1,234.50)", fraction: 2, want: -123450},
		{name: "trailing minus", raw: "1234-", fraction: 0, want: -1234},
		{name: "float artifact-free decimal", raw: "0.1", fraction: 2, want: 10},
		{name: "too precise", raw: "12.345", fraction: 2, wantErr: true},
		{name: "fraction in won", raw: "1.5", fraction: 0, wantErr: true},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "letters only", raw: "abc", wantErr: true},
		{name: "punctuation", raw: "12/3", wantErr: true},
		{name: "overflow", raw: "99999999999999999999", wantErr: true},
		{name: "min int64 cannot be re-signed", raw: "-9223372036854775808", wantErr: true},
		{name: "max int64", raw: "9223372036854775807", want: 9223372036854775807},
		{name: "currency code prefix", raw: "KRW 15,000", fraction: 0, want: 15000},
		{name: "symbol before minus", raw: "₩-15,000", fraction: 0, want: -15000},
		{name: "spreadsheet exponent", raw: "3E+05", fraction: 0, want: 300000},
		{name: "lowercase exponent", raw: "3e5", fraction: 0, want: 300000},
		{name: "negative exponent", raw: "1.5E-1", fraction: 2, want: 15},
		{name: "letter inside digits", raw: "1O00", wantErr: true},
		{name: "letters between digits", raw: "12abc34", wantErr: true},
		{name: "interior minus", raw: "1-2", wantErr: true},
		{name: "double minus", raw: "--5", wantErr: true},
		{name: "misplaced separator", raw: "1,23", wantErr: true},
		{name: "space inside digits", raw: "12 34", wantErr: true},
		{name: "lone dot", raw: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.raw, tt.fraction)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate(t *testing.T) {
	layouts := bankSaladSchema.dateLayouts
	want := civil.Date{Year: 2024, Month: 1, Day: 15}

	for _, raw := range []string{"2024-01-15", "2024.01.15", "2024/01/15", "20240115", "45306", "45306.75", "2024-01-15 13:45:00"} {
		got, err := parseDate(raw, layouts, true)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	got, err := parseDate("01/15/2024", bankCSVSchema.dateLayouts, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = parseDate("20240115", bankCSVSchema.dateLayouts, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, raw := range []string{"", "2024-02-30", "yesterday", "45306"} {
		_, err := parseDate(raw, bankCSVSchema.dateLayouts, false)
		assert.Error(t, err, raw)
	}

	// Numbers that are neither a layout nor a plausible serial never
	// become far-future dates.
	for _, raw := range []string{"20241305", "99999999", "0", "-3", "2958466"} {
		_, err := parseDate(raw, layouts, true)
		assert.Error(t, err, raw)
	}

	got, err = parseDate("2958465", layouts, true)
	require.NoError(t, err)
	assert.Equal(t, civil.Date{Year: 9999, Month: 12, Day: 31}, got)
}

func TestApplySign(t *testing.T) {
	tests := []struct {
		kind    string
		wantTyp string
		amount  int64
		want    int64
		wantErr bool
	}{
		{kind: "withdrawal", amount: 15000, want: -15000, wantTyp: "expense"},
		{kind: "출금", amount: -15000, want: -15000, wantTyp: "expense"},
		{kind: "지출", amount: 100, want: -100, wantTyp: "expense"},
		{kind: "Deposit", amount: 15000, want: 15000, wantTyp: "income"},
		{kind: "입금", amount: -15000, want: 15000, wantTyp: "income"},
		{kind: "수입", amount: 1, want: 1, wantTyp: "income"},
		{kind: "이체", amount: -5, want: -5, wantTyp: "transfer"},
		{kind: "transfer", amount: 5, want: 5, wantTyp: "transfer"},
		{kind: "", amount: -5, want: -5, wantTyp: "expense"},
		{kind: "", amount: 0, want: 0, wantTyp: "income"},
		{kind: "refund?", amount: 5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			got, typ, err := applySign(tt.kind, tt.amount)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantTyp, string(typ))
		})
	}
}

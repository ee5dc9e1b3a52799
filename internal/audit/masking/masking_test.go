package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", MaskSecret("  "))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "****7890", MaskSecret("1234567890"))
}

func TestMaskURLDropsQuery(t *testing.T) {
	masked := MaskURL("https://files.example.com/receipts/2024/march.jpg?sig=secret")
	assert.Equal(t, "https://files.example.com/****.jpg", masked)
	assert.NotContains(t, masked, "secret")
}

func TestMaskFieldsOnlyTouchesSensitiveKeys(t *testing.T) {
	input := map[string]any{
		"receipt_url": "https://files.example.com/r/abcdef.png",
		"amount_paid": "550",
		"nested": map[string]any{
			"renter_phone": "+628123456789",
		},
	}

	masked := MaskFields(input)
	require.NotNil(t, masked)
	assert.Equal(t, "550", masked["amount_paid"])
	assert.Equal(t, "https://files.example.com/****.png", masked["receipt_url"])
	assert.Equal(t, "****6789", masked["nested"].(map[string]any)["renter_phone"])
	assert.Equal(t, "https://files.example.com/r/abcdef.png", input["receipt_url"])
}

func TestMaskFieldsEmpty(t *testing.T) {
	assert.Nil(t, MaskFields(nil))
	assert.Nil(t, MaskFields(map[string]any{" ": "x"}))
}

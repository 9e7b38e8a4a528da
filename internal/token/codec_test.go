package token

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

func TestParseBoxRoundTrip(t *testing.T) {
	orderID := uuid.New()

	tok, err := ParseBox(CanonicalBox(orderID, 3))
	require.NoError(t, err)
	require.Equal(t, orderID, tok.OrderID)
	require.Equal(t, 3, tok.Ordinal)

	tok, err = ParseBox(CanonicalBox(orderID, 0))
	require.NoError(t, err)
	require.Equal(t, orderID, tok.OrderID)
	require.Equal(t, 0, tok.Ordinal)
}

func TestParseBoxToleratesCaseAndWhitespace(t *testing.T) {
	orderID := uuid.New()
	raw := "  box_" + orderID.String() + "_2  "

	tok, err := ParseBox(raw)
	require.NoError(t, err)
	require.Equal(t, orderID, tok.OrderID)
	require.Equal(t, 2, tok.Ordinal)

	normalized, err := NormalizeBox(raw)
	require.NoError(t, err)
	require.Equal(t, CanonicalBox(orderID, 2), normalized)

	again, err := NormalizeBox(normalized)
	require.NoError(t, err)
	require.Equal(t, normalized, again)
}

func TestParseBoxToleratesLabelVariants(t *testing.T) {
	orderID := uuid.New()
	cases := []struct {
		raw  string
		want BoxToken
	}{
		{orderID.String(), BoxToken{OrderID: orderID}},
		{orderID.String() + "_2", BoxToken{OrderID: orderID, Ordinal: 2}},
		{"BOX-" + orderID.String(), BoxToken{OrderID: orderID}},
		{"BOX " + orderID.String(), BoxToken{OrderID: orderID}},
		{"LBL " + orderID.String() + "_4 END", BoxToken{OrderID: orderID, Ordinal: 4}},
		{"BOX_" + orderID.String() + "_x", BoxToken{OrderID: orderID}},
	}
	for _, tc := range cases {
		tok, err := ParseBox(tc.raw)
		require.NoError(t, err, "raw=%q", tc.raw)
		require.Equal(t, tc.want, tok, "raw=%q", tc.raw)
	}
}

func TestParseBoxRejectsGarbage(t *testing.T) {
	for _, raw := range []string{
		"",
		"BOX_",
		"BOX_not-a-uuid",
		"BOX_" + uuid.NewString() + "_0",
		"PALLET_" + uuid.NewString(),
		"SHELF " + uuid.NewString(),
	} {
		_, err := ParseBox(raw)
		require.Error(t, err, "raw=%q", raw)
		typed := apperrors.As(err)
		require.NotNil(t, typed, "raw=%q", raw)
		require.Equal(t, apperrors.CodeValidation, typed.Code(), "raw=%q", raw)
	}
}

func TestClassifyContainerPrefixes(t *testing.T) {
	id := uuid.New()
	for _, raw := range []string{
		"SHELF_" + id.String(),
		"shelf-" + id.String(),
		"SHELF " + id.String(),
		"SHELF:" + id.String(),
	} {
		scan := Classify(raw, false)
		require.Equal(t, ClassShelf, scan.Class, "raw=%q", raw)
		require.Equal(t, id, scan.ContainerID, "raw=%q", raw)
	}

	scan := Classify("PALLET_"+id.String(), true)
	require.Equal(t, ClassPallet, scan.Class)
	require.Equal(t, id, scan.ContainerID)

	require.Equal(t, ClassUnrecognized, Classify("SHELF_A4", false).Class)
}

func TestClassifyBareUUIDFallsBackToPallet(t *testing.T) {
	id := uuid.New()

	scan := Classify(id.String(), false)
	require.Equal(t, ClassPallet, scan.Class)
	require.Equal(t, id, scan.ContainerID)

	// once a pallet is established the same read means a box
	scan = Classify(id.String(), true)
	require.Equal(t, ClassBox, scan.Class)
	require.Equal(t, id, scan.Box.OrderID)
	require.Equal(t, CanonicalBox(id, 0), scan.Canonical)
}

func TestClassifyBoxAndUnrecognized(t *testing.T) {
	orderID := uuid.New()

	scan := Classify("box_"+orderID.String()+"_2", false)
	require.Equal(t, ClassBox, scan.Class)
	require.Equal(t, BoxToken{OrderID: orderID, Ordinal: 2}, scan.Box)
	require.Equal(t, CanonicalBox(orderID, 2), scan.Canonical)

	// suffixed uuid is never a pallet, even without an established one
	scan = Classify(orderID.String()+"_3", false)
	require.Equal(t, ClassBox, scan.Class)
	require.Equal(t, 3, scan.Box.Ordinal)

	require.Equal(t, ClassUnrecognized, Classify("banana", false).Class)
	require.Equal(t, ClassUnrecognized, Classify("", true).Class)
}

func TestOrderRef(t *testing.T) {
	orderID := uuid.New()
	got, err := OrderRef("BOX_" + orderID.String() + "_7")
	require.NoError(t, err)
	require.Equal(t, orderID, got)
}

func TestParseCrate(t *testing.T) {
	crateID := uuid.New()

	tok, err := ParseCrate("crate_" + crateID.String())
	require.NoError(t, err)
	require.Equal(t, crateID, tok.CrateID)
	require.Equal(t, "CRATE_"+crateID.String(), tok.String())

	_, err = ParseCrate("BOX_" + crateID.String())
	require.Error(t, err)
}

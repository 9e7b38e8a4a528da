// Package token parses and formats the label tokens printed on boxes and
// crates. A box label embeds the owning order id, so a bare scanner read is
// enough to resolve the order even when the box row was never created.
package token

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

const (
	boxPrefix   = "BOX_"
	cratePrefix = "CRATE_"
)

var (
	// Scanners prepend arbitrary junk and use whatever separator the label
	// template happened to print, so the box core is matched anywhere in the
	// token rather than anchored.
	boxCorePattern   = regexp.MustCompile(`([0-9a-fA-F-]{36})(?:_(\d+))?`)
	boxPrefixPattern = regexp.MustCompile(`^(?i)BOX[\s:_-]*`)
	containerPattern = regexp.MustCompile(`^(?i)(SHELF|PALLET)[\s:_-]*`)
	cratePattern     = regexp.MustCompile(`^CRATE_([0-9a-fA-F-]{36})$`)
)

// Class is the kind of entity a scanned token refers to.
type Class string

const (
	ClassBox          Class = "box"
	ClassPallet       Class = "pallet"
	ClassShelf        Class = "shelf"
	ClassUnrecognized Class = "unrecognized"
)

// Scan is the classified form of a raw scanner read.
type Scan struct {
	Class       Class
	ContainerID uuid.UUID
	Box         BoxToken
	Canonical   string
}

// BoxToken identifies a packed box: the owning order plus a 1-based ordinal.
// Ordinal 0 means the label carried no suffix.
type BoxToken struct {
	OrderID uuid.UUID
	Ordinal int
}

// CrateToken identifies an intake crate.
type CrateToken struct {
	CrateID uuid.UUID
}

// Classify resolves a raw scanner read, in priority order: an explicit
// SHELF/PALLET prefix wins, then a bare uuid falls back to a pallet reference
// while no pallet is established for the scanning session, then anything
// carrying a uuid is a box. The container id after a prefix is either an
// embedded uuid or the stripped remainder.
func Classify(raw string, palletEstablished bool) Scan {
	cleaned := strings.TrimSpace(raw)

	if loc := containerPattern.FindStringSubmatch(cleaned); loc != nil {
		class := ClassShelf
		if strings.EqualFold(loc[1], "PALLET") {
			class = ClassPallet
		}
		id, ok := containerID(cleaned[len(loc[0]):], cleaned)
		if !ok {
			return Scan{Class: ClassUnrecognized}
		}
		return Scan{Class: class, ContainerID: id}
	}

	if !palletEstablished {
		if id, err := uuid.Parse(cleaned); err == nil {
			return Scan{Class: ClassPallet, ContainerID: id}
		}
	}

	if tok, err := ParseBox(cleaned); err == nil {
		return Scan{Class: ClassBox, Box: tok, Canonical: tok.String()}
	}
	return Scan{Class: ClassUnrecognized}
}

// containerID prefers an embedded uuid anywhere in the original token and
// falls back to the stripped remainder.
func containerID(remainder, full string) (uuid.UUID, bool) {
	if match := boxCorePattern.FindStringSubmatch(full); match != nil {
		if id, err := uuid.Parse(strings.ToLower(match[1])); err == nil {
			return id, true
		}
	}
	if id, err := uuid.Parse(strings.TrimSpace(remainder)); err == nil {
		return id, true
	}
	return uuid.Nil, false
}

// ParseBox decodes a scanned box label. The order uuid may sit anywhere in
// the token with any printed prefix, so damaged or template-variant labels
// still resolve; a SHELF/PALLET prefix disqualifies the token since it names
// a container, not a box.
func ParseBox(raw string) (BoxToken, error) {
	cleaned := strings.TrimSpace(raw)
	if containerPattern.MatchString(cleaned) {
		return BoxToken{}, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid box token %q", cleaned))
	}

	// A printed separator like "BOX-" sits inside the uuid character class
	// and would shift the match one character left, so strip it first.
	core := boxPrefixPattern.ReplaceAllString(cleaned, "")
	for _, match := range boxCorePattern.FindAllStringSubmatch(core, -1) {
		orderID, err := uuid.Parse(strings.ToLower(match[1]))
		if err != nil {
			continue
		}
		ordinal := 0
		if match[2] != "" {
			ordinal, err = strconv.Atoi(match[2])
			if err != nil || ordinal < 1 {
				return BoxToken{}, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid box ordinal in %q", cleaned))
			}
		}
		return BoxToken{OrderID: orderID, Ordinal: ordinal}, nil
	}
	return BoxToken{}, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid box token %q", cleaned))
}

// ParseCrate decodes a scanned crate label.
func ParseCrate(raw string) (CrateToken, error) {
	cleaned := normalizeRaw(raw, cratePrefix)
	match := cratePattern.FindStringSubmatch(cleaned)
	if match == nil {
		return CrateToken{}, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid crate token %q", strings.TrimSpace(raw)))
	}
	crateID, err := uuid.Parse(strings.ToLower(match[1]))
	if err != nil {
		return CrateToken{}, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("invalid crate token %q", strings.TrimSpace(raw)))
	}
	return CrateToken{CrateID: crateID}, nil
}

// String renders the canonical label form.
func (b BoxToken) String() string {
	return CanonicalBox(b.OrderID, b.Ordinal)
}

// String renders the canonical label form.
func (c CrateToken) String() string {
	return cratePrefix + c.CrateID.String()
}

// CanonicalBox formats a box label. Ordinal 0 omits the suffix.
func CanonicalBox(orderID uuid.UUID, ordinal int) string {
	if ordinal <= 0 {
		return boxPrefix + orderID.String()
	}
	return fmt.Sprintf("%s%s_%d", boxPrefix, orderID.String(), ordinal)
}

// NormalizeBox returns the canonical form of a raw box label. Used wherever
// tokens feed dedupe sets or idempotency keys so that case, whitespace and
// prefix variants collapse to one value.
func NormalizeBox(raw string) (string, error) {
	tok, err := ParseBox(raw)
	if err != nil {
		return "", err
	}
	return tok.String(), nil
}

// OrderRef extracts the order id embedded in a box label without requiring
// the box row to exist.
func OrderRef(raw string) (uuid.UUID, error) {
	tok, err := ParseBox(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return tok.OrderID, nil
}

// normalizeRaw trims whitespace and upper-cases the prefix so the patterns
// only need to deal with one spelling.
func normalizeRaw(raw, prefix string) string {
	cleaned := strings.TrimSpace(raw)
	if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
		cleaned = prefix + cleaned[len(prefix):]
	}
	return cleaned
}

// Package rename applies ordered lists of rename operations to loaded assets.
package rename

import (
	"fmt"
	"strings"

	"github.com/mogaika/assetrename/asset"

	"github.com/pkg/errors"
)

var ErrInvalidOperand = errors.New("invalid operand")

const OperandSeparator = ":"

type Operation struct {
	Kind asset.OpKind
	// operand as it was given
	Raw string
	Old string
	New string
}

func (op Operation) String() string {
	if op.Kind == asset.OpSkeletonLink {
		return fmt.Sprintf("%v -> %q", op.Kind, op.New)
	}
	return fmt.Sprintf("%v %q -> %q", op.Kind, op.Old, op.New)
}

// SelfRename reports an operation that names the same thing on both sides.
func (op Operation) SelfRename() bool {
	return op.Kind != asset.OpSkeletonLink && op.Old == op.New
}

var kindNames = map[string]asset.OpKind{
	"skeleton":      asset.OpSkeletonLink,
	"skeleton-link": asset.OpSkeletonLink,
	"bone":          asset.OpBone,
	"animation":     asset.OpAnimation,
	"material":      asset.OpMaterial,
	"submesh":       asset.OpSubPart,
	"sub-part":      asset.OpSubPart,
}

func ParseKind(s string) (asset.OpKind, error) {
	if k, ok := kindNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, errors.Wrapf(ErrInvalidOperand, "unknown operation kind %q", s)
}

// ParseOperand splits "old:new". Empty tokens are dropped and anything past
// the second token is ignored. A single token renames a thing to itself.
func ParseOperand(raw string) (string, string, error) {
	tokens := make([]string, 0, 2)
	for _, t := range strings.Split(raw, OperandSeparator) {
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	switch len(tokens) {
	case 0:
		return "", "", errors.Wrapf(ErrInvalidOperand, "%q has no names", raw)
	case 1:
		return tokens[0], tokens[0], nil
	default:
		return tokens[0], tokens[1], nil
	}
}

func NewOperation(kind asset.OpKind, raw string) (Operation, error) {
	op := Operation{Kind: kind, Raw: raw}
	if kind == asset.OpSkeletonLink {
		// skeleton paths may contain the separator
		if raw == "" {
			return op, errors.Wrapf(ErrInvalidOperand, "empty skeleton link")
		}
		op.New = raw
		return op, nil
	}
	var err error
	op.Old, op.New, err = ParseOperand(raw)
	return op, err
}

// Parse builds an operation from a kind name and its operand.
func Parse(kind, raw string) (Operation, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Operation{}, err
	}
	return NewOperation(k, raw)
}

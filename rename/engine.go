package rename

import (
	"github.com/mogaika/assetrename/asset"
	"github.com/mogaika/assetrename/status"

	"github.com/pkg/errors"
)

type skeletonLinker interface {
	SetSkeletonLink(name string)
}

type subPartRenamer interface {
	RenameSubPart(oldName, newName string) error
}

type materialRebinder interface {
	RenameMaterial(oldMaterial, newMaterial string) int
}

type boneRenamer interface {
	RenameBone(name, newName string) error
}

type animationRenamer interface {
	RenameAnimation(oldName, newName string) error
}

type Stats struct {
	Applied int
	Skipped int
}

// Engine applies one operation list to any number of assets.
type Engine struct {
	ops []Operation
}

func NewEngine(ops []Operation) *Engine {
	return &Engine{ops: append([]Operation(nil), ops...)}
}

func (e *Engine) Operations() []Operation {
	return append([]Operation(nil), e.ops...)
}

// Apply runs the operations in order. Operations the asset kind does not
// support are skipped with a warning. The first mutator failure stops the
// run; operations applied before it stay applied.
func (e *Engine) Apply(a asset.Asset, log *status.Logger) (Stats, error) {
	if log == nil {
		log = status.Default()
	}
	var stats Stats
	for i, op := range e.ops {
		if !a.Supports(op.Kind) {
			log.Warnf("skipping %v: not applicable to %v", op, a.Kind())
			stats.Skipped++
			continue
		}
		if err := apply(a, op, log); err != nil {
			return stats, errors.Wrapf(err, "operation %d (%v)", i, op)
		}
		log.Debugf("applied %v", op)
		stats.Applied++
	}
	return stats, nil
}

func apply(a asset.Asset, op Operation, log *status.Logger) error {
	unsupported := errors.Errorf("%v cannot apply %v", a.Kind(), op.Kind)
	switch op.Kind {
	case asset.OpSkeletonLink:
		l, ok := a.(skeletonLinker)
		if !ok {
			return unsupported
		}
		l.SetSkeletonLink(op.New)
	case asset.OpSubPart:
		r, ok := a.(subPartRenamer)
		if !ok {
			return unsupported
		}
		return r.RenameSubPart(op.Old, op.New)
	case asset.OpMaterial:
		r, ok := a.(materialRebinder)
		if !ok {
			return unsupported
		}
		if n := r.RenameMaterial(op.Old, op.New); n == 0 {
			log.Warnf("no sub-part is bound to material %q", op.Old)
		}
	case asset.OpBone:
		r, ok := a.(boneRenamer)
		if !ok {
			return unsupported
		}
		return r.RenameBone(op.Old, op.New)
	case asset.OpAnimation:
		r, ok := a.(animationRenamer)
		if !ok {
			return unsupported
		}
		return r.RenameAnimation(op.Old, op.New)
	default:
		return errors.Errorf("Unknown operation kind %v", op.Kind)
	}
	return nil
}

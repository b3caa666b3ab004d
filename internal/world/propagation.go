package world

import (
	"context"
	"errors"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// DefaultMaxUpdateDepth предел глубины каскада обновлений соседей
const DefaultMaxUpdateDepth = 64

// updateChain положение мутации в каскаде обновлений соседей.
// Передаётся явно, а через контекст доходит и до записей, которые
// поведения делают сами из StateForNeighborUpdate.
type updateChain struct {
	depth int
}

func (c updateChain) next() updateChain {
	return updateChain{depth: c.depth + 1}
}

type chainKey struct{}

func withChain(ctx context.Context, c updateChain) context.Context {
	return context.WithValue(ctx, chainKey{}, c)
}

func chainFrom(ctx context.Context) updateChain {
	if c, ok := ctx.Value(chainKey{}).(updateChain); ok {
		return c
	}
	return updateChain{}
}

// propagate уведомляет соседей об изменении в pos. Обход в глубину:
// каждое изменённое соседом состояние записывается сразу и само
// распространяется дальше до перехода к следующему направлению.
// Отмена ctx каскад не прерывает: обрезка возможна только по глубине.
func (w *World) propagate(ctx context.Context, pos vec.Vec3, prev, current block.State, chain updateChain) {
	if chain.depth >= w.maxUpdateDepth {
		w.metrics.incTruncations()
		w.logger.Warn("каскад обновлений в %s обрезан на глубине %d: %v", pos, chain.depth, block.ErrPropagationDepthExceeded)
		return
	}

	// Набор направлений задаёт изменившийся блок, а для пустоты прежний блок
	source := current.Type
	if current.IsAir() && prev.Type != nil {
		source = prev.Type
	}
	dirs := block.UpdateDirections(w.registry.Behavior(source))

	next := chain.next()
	nctx := withChain(context.WithoutCancel(ctx), next)

	for _, dir := range dirs {
		neighborPos := pos.Offset(dir)
		nt, ns, err := w.GetBlockAndState(ctx, neighborPos)
		if err != nil {
			// Незагруженные соседи пропускаются
			continue
		}

		behavior := w.registry.Behavior(nt)
		updated := behavior.StateForNeighborUpdate(nctx, w, nt, ns.ID, neighborPos, dir.Opposite(), pos, current.ID)
		if updated == ns.ID {
			continue
		}

		if _, err := w.setBlockState(nctx, neighborPos, updated, block.FlagsAll, next); err != nil {
			if !errors.Is(err, block.ErrUnloaded) {
				w.logger.Warn("обновление соседа %s от %s отклонено: %v", neighborPos, pos, err)
			}
		}
	}
}

package world

import (
	"context"
)

// DefaultRandomTickSpeed число случайных позиций на чанк за тик
const DefaultRandomTickSpeed = 3

// randomTick выбирает randomTickSpeed позиций в каждом загруженном чанке и
// вызывает RandomTick для непустых ячеек. Чанки обходятся в отсортированном
// порядке, поэтому при одинаковом сиде прогон воспроизводим.
func (w *World) randomTick(ctx context.Context) int {
	if w.randomTickSpeed <= 0 {
		return 0
	}

	count := 0
	for _, coords := range w.LoadedChunks() {
		chunk := w.chunk(coords)
		if chunk == nil {
			// Выгружен другим потоком во время обхода
			continue
		}
		origin := chunk.Origin()

		for i := 0; i < w.randomTickSpeed; i++ {
			if ctx.Err() != nil {
				return count
			}

			w.rngMu.Lock()
			n := w.rng.Intn(ChunkVolume)
			w.rngMu.Unlock()

			pos := origin.Add(localAt(n))
			t, s, err := w.GetBlockAndState(ctx, pos)
			if err != nil || s.IsAir() {
				continue
			}

			w.registry.Behavior(t).RandomTick(ctx, w, t, pos)
			w.metrics.incRandomTicks()
			count++
		}
	}
	return count
}

package world

import (
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
	"github.com/annel0/blocktick/internal/world/block/implementations"
)

// BiomeType представляет тип биома
type BiomeType int

const (
	BiomePlains BiomeType = iota
	BiomeDesert
	BiomeMountains
	BiomeOcean
)

func (b BiomeType) String() string {
	switch b {
	case BiomeDesert:
		return "desert"
	case BiomeMountains:
		return "mountains"
	case BiomeOcean:
		return "ocean"
	default:
		return "plains"
	}
}

// Константы высот для генерации
const (
	SeaLevel         = 62
	TerrainBase      = 58 // Высота поверхности при нулевом шуме
	TerrainAmplitude = 24 // Размах рельефа
	SoilDepth        = 3  // Толщина слоя земли или песка
)

// Generator генерирует рельеф для новых чанков по шуму Перлина
type Generator struct {
	Seed        int64
	NoiseScale  float64 // Масштаб шума высот
	BiomeScale  float64 // Масштаб шума биомов
	CactusDense float64 // Шанс кактуса на подходящей клетке пустыни

	heightNoise *perlin.Perlin
	biomeNoise  *perlin.Perlin
	blocks      *implementations.Catalogue
}

// NewGenerator создаёт генератор над каталогом блоков
func NewGenerator(seed int64, blocks *implementations.Catalogue) *Generator {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав

	return &Generator{
		Seed:        seed,
		NoiseScale:  0.02,
		BiomeScale:  0.005,
		CactusDense: 0.05,
		heightNoise: perlin.NewPerlin(alpha, beta, n, seed),
		biomeNoise:  perlin.NewPerlin(alpha, beta, n, seed+42),
		blocks:      blocks,
	}
}

// Column описывает колонку рельефа
type Column struct {
	Height int
	Biome  BiomeType
}

// ColumnAt вычисляет высоту поверхности и биом колонки
func (g *Generator) ColumnAt(col vec.Vec2) Column {
	h := g.heightNoise.Noise2D(float64(col.X)*g.NoiseScale, float64(col.Y)*g.NoiseScale)
	height := TerrainBase + int(h*TerrainAmplitude)

	biomeValue := g.biomeNoise.Noise2D(float64(col.X)*g.BiomeScale, float64(col.Y)*g.BiomeScale)
	return Column{Height: height, Biome: g.biomeFor(height, biomeValue)}
}

// biomeFor определяет тип биома на основе высоты и шума биомов
func (g *Generator) biomeFor(height int, biomeValue float64) BiomeType {
	switch {
	case height < SeaLevel-4:
		return BiomeOcean
	case height > SeaLevel+14:
		return BiomeMountains
	case biomeValue < -0.15:
		return BiomeDesert
	default:
		return BiomePlains
	}
}

// GenerateChunk генерирует кубический чанк по его координатам
func (g *Generator) GenerateChunk(coords vec.Vec3) *Chunk {
	air := g.blocks.Air.DefaultState()
	chunk := NewChunk(coords, air)
	origin := coords.ChunkOrigin()

	// Отдельный генератор случайных чисел на чанк для детерминированности
	rng := rand.New(rand.NewSource(g.Seed + int64(coords.X)*341873128712 + int64(coords.Z)*132897987541 + int64(coords.Y)*31))

	for z := 0; z < vec.ChunkSize; z++ {
		for x := 0; x < vec.ChunkSize; x++ {
			col := vec.Vec2{X: origin.X + x, Y: origin.Z + z}
			column := g.ColumnAt(col)

			for y := 0; y < vec.ChunkSize; y++ {
				worldY := origin.Y + y
				id := g.blockAt(column, worldY)
				if id != air {
					chunk.setRaw(vec.Vec3{X: x, Y: y, Z: z}, id)
				}
			}

			// Кактусы только на поверхности пустыни и не вплотную друг к другу
			top := column.Height + 1
			if column.Biome == BiomeDesert && top > SeaLevel && (col.X+col.Y)%3 == 0 &&
				top>>4 == coords.Y && rng.Float64() < g.CactusDense {
				chunk.setRaw(vec.Vec3{X: x, Y: top & 0xF, Z: z}, g.blocks.Cactus.DefaultState())
			}
		}
	}
	return chunk
}

// blockAt возвращает состояние для высоты y в колонке
func (g *Generator) blockAt(column Column, y int) block.StateID {
	switch {
	case y > column.Height:
		if y <= SeaLevel {
			return g.blocks.Water.DefaultState()
		}
		return g.blocks.Air.DefaultState()
	case y > column.Height-SoilDepth:
		return g.soilFor(column)
	default:
		return g.blocks.Stone.DefaultState()
	}
}

// soilFor возвращает верхний слой грунта для биома
func (g *Generator) soilFor(column Column) block.StateID {
	switch column.Biome {
	case BiomeDesert:
		return g.blocks.Sand.DefaultState()
	case BiomeOcean:
		if column.Height < SeaLevel-8 {
			return g.blocks.RedSand.DefaultState()
		}
		return g.blocks.Sand.DefaultState()
	case BiomeMountains:
		return g.blocks.Stone.DefaultState()
	default:
		return g.blocks.Dirt.DefaultState()
	}
}

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/annel0/blocktick/internal/vec"
	"github.com/annel0/blocktick/internal/world/block"
)

// BlockView представление блока в ответах API
type BlockView struct {
	Pos        vec.Vec3          `json:"pos"`
	ID         uint32            `json:"id"`
	State      string            `json:"state"`
	Block      string            `json:"block"`
	Properties map[string]string `json:"properties,omitempty"`
	Solid      bool              `json:"solid"`
	Liquid     bool              `json:"liquid"`
	Air        bool              `json:"air"`
}

func newBlockView(pos vec.Vec3, s block.State) BlockView {
	v := BlockView{
		Pos:        pos,
		ID:         uint32(s.ID),
		State:      s.String(),
		Properties: s.Properties(),
		Solid:      s.IsSolid(),
		Liquid:     s.IsLiquid(),
		Air:        s.IsAir(),
	}
	if s.Type != nil {
		v.Block = s.Type.Name
	}
	return v
}

// TypeView описание зарегистрированного типа блока
type TypeView struct {
	Name       string   `json:"name"`
	Base       uint32   `json:"base"`
	States     uint32   `json:"states"`
	Default    string   `json:"default"`
	Properties []string `json:"properties,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// SetBlockRequest тело PUT /api/blocks/:x/:y/:z
type SetBlockRequest struct {
	State string   `json:"state" binding:"required"` // "name[k=v,...]"
	Flags []string `json:"flags"`                    // Пусто: neighbors + listeners
}

// PlaceBlockRequest тело POST /api/blocks/:x/:y/:z/place
type PlaceBlockRequest struct {
	Block    string `json:"block" binding:"required"`
	Face     string `json:"face"`   // Грань, к которой крепится блок; по умолчанию down
	Facing   string `json:"facing"` // Взгляд игрока
	PlayerID uint64 `json:"player_id"`
}

// ScheduleTickRequest тело POST /api/blocks/:x/:y/:z/schedule
type ScheduleTickRequest struct {
	Delay    uint32 `json:"delay"`
	Priority int8   `json:"priority"`
}

// SubscribeRequest тело POST /api/deltas
type SubscribeRequest struct {
	Center vec.Vec3 `json:"center"` // Координаты чанка
	Radius int      `json:"radius"`
}

var flagNames = map[string]block.Flags{
	"neighbors":     block.FlagNotifyNeighbors,
	"listeners":     block.FlagNotifyListeners,
	"skip_drops":    block.FlagSkipDrops,
	"move_entities": block.FlagMoveEntities,
}

func parseFlags(names []string) (block.Flags, error) {
	if len(names) == 0 {
		return block.FlagsAll, nil
	}
	var flags block.Flags
	for _, n := range names {
		f, ok := flagNames[n]
		if !ok {
			return 0, fmt.Errorf("неизвестный флаг %q", n)
		}
		flags |= f
	}
	return flags, nil
}

func parseVec3(c *gin.Context) (vec.Vec3, error) {
	var out [3]int
	for i, name := range []string{"x", "y", "z"} {
		v, err := strconv.Atoi(c.Param(name))
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("координата %s: %w", name, err)
		}
		out[i] = v
	}
	return vec.Vec3{X: out[0], Y: out[1], Z: out[2]}, nil
}

func (rs *RestServer) handleTypes(c *gin.Context) {
	types := rs.world.Registry().Types()
	views := make([]TypeView, 0, len(types))
	for _, t := range types {
		v := TypeView{
			Name:    t.Name,
			Base:    uint32(t.Base()),
			States:  t.StateCount(),
			Default: (block.State{ID: t.DefaultState(), Type: t}).String(),
			Tags:    t.Tags,
		}
		for _, p := range t.Properties {
			v.Properties = append(v.Properties, p.Name)
		}
		views = append(views, v)
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Типы блоков", Data: views})
}

func (rs *RestServer) handleGetBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	s, err := rs.world.GetBlockState(c.Request.Context(), pos)
	if err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок", Data: newBlockView(pos, s)})
}

func (rs *RestServer) handleSetBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	flags, err := parseFlags(req.Flags)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	state, err := rs.world.Registry().Parse(req.State)
	if err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}

	ctx := c.Request.Context()
	prevID, err := rs.world.SetBlockState(ctx, pos, state.ID, flags)
	if err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	prev, _ := rs.world.Registry().Decode(prevID)
	current, err := rs.world.GetBlockState(ctx, pos)
	if err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок установлен", Data: gin.H{
		"previous": prev.String(),
		"block":    newBlockView(pos, current),
	}})
}

func (rs *RestServer) handlePlaceBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	var req PlaceBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}

	face := vec.Down
	if req.Face != "" {
		var ok bool
		if face, ok = vec.ParseDirection(req.Face); !ok {
			rs.fail(c, http.StatusBadRequest, fmt.Errorf("неизвестная грань %q", req.Face))
			return
		}
	}
	placer := block.Placer{Facing: vec.North, PlayerID: req.PlayerID}
	if req.Facing != "" {
		facing, ok := vec.ParseDirection(req.Facing)
		if !ok {
			rs.fail(c, http.StatusBadRequest, fmt.Errorf("неизвестное направление %q", req.Facing))
			return
		}
		placer.Facing = facing
	}

	t, ok := rs.world.Registry().ByName(req.Block)
	if !ok {
		rs.fail(c, http.StatusNotFound, fmt.Errorf("%w: %q", block.ErrUnknownBlock, req.Block))
		return
	}

	ctx := c.Request.Context()
	if _, err := rs.world.PlaceBlock(ctx, t, pos, face, placer); err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	s, err := rs.world.GetBlockState(ctx, pos)
	if err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Блок размещён", Data: newBlockView(pos, s)})
}

func (rs *RestServer) handleBreakBlock(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	drop := &block.DropContext{Cause: "api"}
	if raw := c.Query("player_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			rs.fail(c, http.StatusBadRequest, fmt.Errorf("player_id: %w", err))
			return
		}
		drop.Cause = "player"
		drop.PlayerID = id
	}
	if err := rs.world.BreakBlock(c.Request.Context(), pos, drop, block.FlagsAll); err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок разрушен"})
}

func (rs *RestServer) handleScheduleTick(c *gin.Context) {
	pos, err := parseVec3(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	var req ScheduleTickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Priority < int8(block.PriorityExtremelyHigh) || req.Priority > int8(block.PriorityExtremelyLow) {
		rs.fail(c, http.StatusBadRequest, fmt.Errorf("приоритет вне диапазона: %d", req.Priority))
		return
	}

	t, err := rs.world.GetBlock(c.Request.Context(), pos)
	if err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	rs.world.ScheduleBlockTick(t, pos, req.Delay, block.TickPriority(req.Priority))
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Тик запланирован", Data: gin.H{
		"block":        t.Name,
		"current_tick": rs.world.CurrentTick(),
	}})
}

func (rs *RestServer) handleWorldStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Статистика мира", Data: rs.world.Stats()})
}

func (rs *RestServer) handleLastTick(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Последний тик", Data: rs.world.LastTick()})
}

func (rs *RestServer) handleLoadedChunks(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Загруженные чанки", Data: rs.world.LoadedChunks()})
}

func (rs *RestServer) handleLoadChunk(c *gin.Context) {
	var coords vec.Vec3
	if err := c.ShouldBindJSON(&coords); err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	if _, err := rs.world.LoadChunk(c.Request.Context(), coords); err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк загружен", Data: coords})
}

func (rs *RestServer) handleUnloadChunk(c *gin.Context) {
	coords, err := parseVec3(c)
	if err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	if err := rs.world.UnloadChunk(c.Request.Context(), coords); err != nil {
		rs.fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк выгружен"})
}

func (rs *RestServer) handleSaveAll(c *gin.Context) {
	if err := rs.world.SaveAll(c.Request.Context()); err != nil {
		rs.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Мир сохранён"})
}

func (rs *RestServer) handleSubscribeDeltas(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Radius < 0 || req.Radius > 32 {
		rs.fail(c, http.StatusBadRequest, fmt.Errorf("радиус вне диапазона: %d", req.Radius))
		return
	}
	id := uuid.NewString()
	rs.deltas.Subscribe(id, req.Center, req.Radius)
	c.JSON(http.StatusCreated, GenericResponse{Success: true, Message: "Подписка создана", Data: gin.H{"id": id}})
}

func (rs *RestServer) handlePollDeltas(c *gin.Context) {
	views, ok := rs.deltas.Poll(c.Param("id"))
	if !ok {
		rs.fail(c, http.StatusNotFound, fmt.Errorf("подписка %q не найдена", c.Param("id")))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Изменения", Data: views})
}

func (rs *RestServer) handleUnsubscribeDeltas(c *gin.Context) {
	rs.deltas.Unsubscribe(c.Param("id"))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Подписка удалена"})
}

package systems

import (
	"os"

	"github.com/rotisserie/eris"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/decker502/danmaku/pkg/components"
)

// LuaModifier 用 Lua 脚本编写的修改器
//
// 每帧调用一次脚本中的函数 fn(dt, count)，脚本通过宿主函数访问活跃区间（下标从 1 开始）：
//
//	x, y, rot, speed, age = get(i)
//	set(i, x, y, rot, speed)
//	destroy(i)
//
// 脚本错误（包括越界访问）作为 ErrModifierFailure 上报。
// 一个 LuaModifier 持有一个独立的 Lua 虚拟机，不可并发使用，因此不要在多个集合间共享。
type LuaModifier struct {
	name     string
	function string
	stage    Stage
	vm       *lua.LState
	ctx      *ModifierContext
	log      *zap.Logger
}

// NewLuaModifier 编译脚本并创建修改器
//
// 参数:
//   - name: 修改器名称（用于日志）
//   - source: Lua 脚本源码
//   - function: 每帧调用的全局函数名
//   - stage: 执行阶段
//   - log: 日志记录器
func NewLuaModifier(name, source, function string, stage Stage, log *zap.Logger) (*LuaModifier, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	m := &LuaModifier{
		name:     name,
		function: function,
		stage:    stage,
		vm:       vm,
		log:      log,
	}
	m.registerHostAPI()

	if err := vm.DoString(source); err != nil {
		vm.Close()
		return nil, eris.Wrapf(err, "load lua modifier %q", name)
	}
	if _, ok := vm.GetGlobal(function).(*lua.LFunction); !ok {
		vm.Close()
		return nil, eris.Errorf("lua modifier %q: function %q not defined", name, function)
	}
	log.Debug("[LuaModifier] loaded", zap.String("name", name), zap.String("function", function))
	return m, nil
}

// LoadLuaModifier 从文件加载脚本
func LoadLuaModifier(name, path, function string, stage Stage, log *zap.Logger) (*LuaModifier, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read lua script %s", path)
	}
	return NewLuaModifier(name, string(src), function, stage, log)
}

func (m *LuaModifier) Name() string { return m.name }
func (m *LuaModifier) Stage() Stage { return m.stage }

// Apply 调用脚本函数
func (m *LuaModifier) Apply(ctx *ModifierContext) error {
	if m.vm == nil {
		return eris.Errorf("lua modifier %q is closed", m.name)
	}
	m.ctx = ctx
	defer func() { m.ctx = nil }()

	_, hi := ctx.Range()
	err := m.vm.CallByParam(lua.P{
		Fn:      m.vm.GetGlobal(m.function),
		NRet:    0,
		Protect: true,
	}, lua.LNumber(ctx.Dt), lua.LNumber(hi))
	if err != nil {
		return eris.Wrapf(err, "lua %s()", m.function)
	}
	return nil
}

// Close 关闭 Lua 虚拟机
func (m *LuaModifier) Close() {
	if m.vm != nil {
		m.vm.Close()
		m.vm = nil
	}
}

func (m *LuaModifier) registerHostAPI() {
	m.vm.SetGlobal("get", m.vm.NewFunction(m.luaGet))
	m.vm.SetGlobal("set", m.vm.NewFunction(m.luaSet))
	m.vm.SetGlobal("destroy", m.vm.NewFunction(m.luaDestroy))
}

// slot 把脚本传入的 1 基下标转换为池下标
func (m *LuaModifier) slot(L *lua.LState) int {
	if m.ctx == nil {
		L.RaiseError("host API called outside of a frame")
		return -1
	}
	i := L.CheckInt(1) - 1
	if _, hi := m.ctx.Range(); i < 0 || i >= hi {
		L.ArgError(1, "entity index out of range")
		return -1
	}
	return i
}

func (m *LuaModifier) luaGet(L *lua.LState) int {
	i := m.slot(L)
	cols := m.ctx.Pool.Columns()
	L.Push(lua.LNumber(cols.Positions[i].X))
	L.Push(lua.LNumber(cols.Positions[i].Y))
	L.Push(lua.LNumber(cols.Rotations[i]))
	L.Push(lua.LNumber(cols.Speeds[i]))
	L.Push(lua.LNumber(cols.Ages[i]))
	return 5
}

func (m *LuaModifier) luaSet(L *lua.LState) int {
	i := m.slot(L)
	cols := m.ctx.Pool.Columns()
	cols.Positions[i] = components.Vec2{
		X: float32(L.CheckNumber(2)),
		Y: float32(L.CheckNumber(3)),
	}
	cols.Rotations[i] = float32(L.OptNumber(4, lua.LNumber(cols.Rotations[i])))
	cols.Speeds[i] = float32(L.OptNumber(5, lua.LNumber(cols.Speeds[i])))
	return 0
}

func (m *LuaModifier) luaDestroy(L *lua.LState) int {
	i := m.slot(L)
	if err := m.ctx.Pool.DestroyAt(i); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

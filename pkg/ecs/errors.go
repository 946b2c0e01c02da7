package ecs

import "github.com/rotisserie/eris"

var (
	// ErrStaleHandle 句柄对应的下标已被压缩移走、池已扩容，或实体已被重复销毁
	// 调用方需要重新获取句柄
	ErrStaleHandle = eris.New("stale entity handle")

	// ErrPoolExhausted 固定容量模式下池已满
	ErrPoolExhausted = eris.New("entity pool exhausted")

	// ErrPoolDisposed 池已释放
	ErrPoolDisposed = eris.New("entity pool disposed")

	// ErrPoolBusy 有迭代正在进行时尝试压缩池
	ErrPoolBusy = eris.New("entity pool is being iterated")
)

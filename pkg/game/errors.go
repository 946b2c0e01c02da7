package game

import "github.com/rotisserie/eris"

var (
	// ErrSetDisposed 集合已释放
	ErrSetDisposed = eris.New("entity set disposed")

	// ErrDuplicateSet 集合名称已存在
	ErrDuplicateSet = eris.New("duplicate entity set name")

	// ErrManagerClosed 管理器已关闭
	ErrManagerClosed = eris.New("manager closed")
)

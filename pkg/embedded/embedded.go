// Package embedded 提供嵌入资源的统一访问接口
//
// 由于 Go embed 指令只能嵌入当前包目录及其子目录的文件，
// embed.FS 变量必须声明在项目根目录（embed.go）。
// 本包提供包装函数，让其他包可以访问嵌入的配置和脚本。
//
// 使用前必须调用 Init() 初始化。
package embedded

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// 路径前缀，嵌入资源的路径必须以它开头
const dataPrefix = "data/"

var (
	// ErrNotInitialized 未调用 Init
	ErrNotInitialized = eris.New("embedded package not initialized, call Init() first")

	// ErrUnknownPrefix 路径不以 "data/" 开头
	ErrUnknownPrefix = eris.New("unknown resource path prefix")
)

var dataFS fs.FS

// Init 设置嵌入的数据文件系统
// 必须在 main() 开始时、任何资源加载之前调用
func Init(data fs.FS) {
	dataFS = data
}

// IsInitialized 返回 embedded 包是否已初始化
func IsInitialized() bool {
	return dataFS != nil
}

// clean 标准化路径并检查前缀
func clean(path string) (string, error) {
	if dataFS == nil {
		return "", ErrNotInitialized
	}
	// 标准化路径分隔符为正斜杠（embed.FS 使用正斜杠），移除 "./" 前缀
	path = strings.TrimPrefix(filepath.ToSlash(path), "./")
	if !strings.HasPrefix(path, dataPrefix) && path != strings.TrimSuffix(dataPrefix, "/") {
		return "", eris.Wrapf(ErrUnknownPrefix, "%s (must start with %q)", path, dataPrefix)
	}
	return path, nil
}

// ReadFile 读取嵌入文件内容
// 路径必须以 "data/" 开头
func ReadFile(path string) ([]byte, error) {
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(dataFS, p)
	if err != nil {
		return nil, eris.Wrapf(err, "read embedded %s", p)
	}
	return data, nil
}

// Exists 检查文件是否存在
func Exists(path string) bool {
	p, err := clean(path)
	if err != nil {
		return false
	}
	_, err = fs.Stat(dataFS, p)
	return err == nil
}

// Glob 匹配嵌入文件
func Glob(pattern string) ([]string, error) {
	p, err := clean(pattern)
	if err != nil {
		return nil, err
	}
	return fs.Glob(dataFS, p)
}

// Sub 返回指定目录的子文件系统
//
// 演示程序用 Sub("data") 作为 Lua 脚本的根目录，
// 配置中的 script 路径因此写作 "scripts/xxx.lua"。
func Sub(dir string) (fs.FS, error) {
	p, err := clean(dir)
	if err != nil {
		return nil, err
	}
	sub, err := fs.Sub(dataFS, strings.TrimSuffix(p, "/"))
	if err != nil {
		return nil, eris.Wrapf(err, "sub %s", p)
	}
	return sub, nil
}

//go:build mobile

// embed.go - 移动端资源嵌入声明
//
// 此文件仅在使用 -tags mobile 构建时编译。
// 构建前先把根目录的 data/danmaku.yaml 和 data/scripts 复制到 mobile/data。
package mobile

import "embed"

//go:embed data/danmaku.yaml data/scripts
var dataFS embed.FS

package domain

import (
	"regexp"
	"strings"
)

// Имена папок ограничены безопасным набором символов: буквы (включая
// нелатинские алфавиты), цифры, пробел, дефис и подчеркивание.
var folderNameRe = regexp.MustCompile(`^[\p{L}\p{N} _-]+$`)

// ValidateFolderName проверяет имя папки до вычисления пути
func ValidateFolderName(name string) error {
	if name == "" || !folderNameRe.MatchString(name) {
		return ErrInvalidFolderName
	}
	return nil
}

// ChildPath вычисляет материализованный путь папки name внутри
// родителя с путем parentPath. Для корневых папок parentPath пустой.
func ChildPath(parentPath, name string) string {
	if parentPath == "" {
		return "/" + name + "/"
	}
	return parentPath + name + "/"
}

// RebasePath переносит путь из поддерева oldPrefix в поддерево
// newPrefix. Вызывается только для путей, у которых oldPrefix
// действительно является префиксом.
func RebasePath(path, oldPrefix, newPrefix string) string {
	return newPrefix + strings.TrimPrefix(path, oldPrefix)
}

// IsDescendantPath сообщает, лежит ли candidate в поддереве ancestor
// (включая сам ancestor). Используется для запрета циклических
// перемещений: папку нельзя перенести в собственное поддерево.
func IsDescendantPath(candidate, ancestor string) bool {
	return strings.HasPrefix(candidate, ancestor)
}

package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetProjectRoot поиск корня проекта вверх по дереву каталогов от текущего
// корнем считается каталог, в котором лежит anchorFile (например .env)
// если файл не найден - возвращается текущий каталог
func GetProjectRoot(anchorFile string) (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, anchorFile)); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd, nil
		}
		dir = parent
	}
}

// Пакет optimizer — сжатие изображений внешними утилитами
// (jpegoptim, optipng, gifsicle, svgo) по месту хранения.
// Вызов best-effort: отсутствие утилиты или её ошибка логируются,
// но не прерывают сохранение файла.
package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	execute "github.com/alexellis/go-execute/v2"
)

// tool — внешняя утилита оптимизации для набора MIME-типов.
type tool struct {
	command string
	// args возвращает аргументы вызова для файла path
	args func(path string) []string
}

// toolsByMime — соответствие MIME-типа утилите оптимизации.
// Покрывает распознаваемые растровые и векторные типы изображений.
var toolsByMime = map[string]tool{
	"image/jpeg": {
		command: "jpegoptim",
		args:    func(p string) []string { return []string{"--strip-all", "--all-progressive", "-m85", p} },
	},
	"image/pjpeg": {
		command: "jpegoptim",
		args:    func(p string) []string { return []string{"--strip-all", "--all-progressive", "-m85", p} },
	},
	"image/png": {
		command: "optipng",
		args:    func(p string) []string { return []string{"-i0", "-o2", "-quiet", p} },
	},
	"image/gif": {
		command: "gifsicle",
		args:    func(p string) []string { return []string{"-b", "-O3", p} },
	},
	"image/svg+xml": {
		command: "svgo",
		args:    func(p string) []string { return []string{"--multipass", p} },
	},
}

// Chain — цепочка оптимизации изображений.
type Chain struct {
	logger *slog.Logger
}

// NewChain создаёт цепочку оптимизации.
func NewChain(logger *slog.Logger) *Chain {
	return &Chain{
		logger: logger.With(slog.String("component", "optimizer")),
	}
}

// Optimize сжимает файл по указанному пути утилитой, соответствующей
// MIME-типу. Для неизвестного MIME-типа или отсутствующей в PATH
// утилиты — no-op без ошибки. Ненулевой код выхода возвращается
// как ошибка; решение игнорировать её принимает вызывающий код.
func (c *Chain) Optimize(ctx context.Context, path, mime string) error {
	t, ok := toolsByMime[mime]
	if !ok {
		return nil
	}

	if _, err := exec.LookPath(t.command); err != nil {
		c.logger.Debug("Утилита оптимизации не найдена в PATH",
			slog.String("command", t.command),
		)
		return nil
	}

	task := execute.ExecTask{
		Command: t.command,
		Args:    t.args(path),
	}

	res, err := task.Execute(ctx)
	if err != nil {
		return fmt.Errorf("ошибка запуска %s: %w", t.command, err)
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s завершился с кодом %d: %s", t.command, res.ExitCode, res.Stderr)
	}

	c.logger.Debug("Изображение оптимизировано",
		slog.String("path", path),
		slog.String("command", t.command),
	)
	return nil
}

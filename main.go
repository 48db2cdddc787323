// Command gridpaper 将 JSON / CSV 记录排版为带边框表格的 PDF 报表。
//
//	gridpaper render --in staff.json --out staff.pdf --title Staff
//	gridpaper serve --addr :8080
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer cancel()

	if err := newApp().execute(ctx, os.Args[1:]); err != nil {
		os.Exit(exitCode(err))
	}
}

package main

import (
	"context"

	"github.com/fjod/go_shop/config"
	"github.com/fjod/go_shop/internal/app"
	"github.com/fjod/go_shop/pkg/sigctx"
)

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	shop := app.New(sigCtx, cfg)

	shop.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	shop.Close(ctx)
}

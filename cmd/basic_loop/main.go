// Command basic_loop opens a window and clears it to green until closed.
package main

import (
	"github.com/TheBitDrifter/stage"
	"github.com/TheBitDrifter/stage/internal/demo"
)

func main() {
	app, err := demo.New("stage - basic loop")
	if err != nil {
		demo.Exit(err)
	}
	demo.Exit(app.Run(demo.Hooks{
		Render: func(app *demo.App, t *stage.Tick) error {
			w, h := app.Platform.FramebufferSize()
			return app.Pipeline.Backend().Submit(stage.Pass{
				Kind:       stage.PassColor,
				Rect:       stage.MakeRectFromWidthHeight(w, h),
				Target:     stage.Backbuffer,
				Clear:      true,
				ClearColor: stage.Green,
			})
		},
	}))
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/l1jgo/action/internal/action"
	"github.com/l1jgo/action/internal/data"
	"github.com/l1jgo/action/internal/scripting"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Parse and compile every timeline without running it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			file := cfg.Timelines.File
			if len(args) == 1 {
				file = args[0]
			}
			var lua *scripting.Engine
			if cfg.Scripting.Enabled {
				if lua, err = scripting.NewEngine(cfg.Scripting.Dir, log); err != nil {
					return fmt.Errorf("scripting: %w", err)
				}
				defer lua.Close()
			}
			return validate(file, lua, log)
		},
	}
}

// validate compiles each timeline on a scratch context and releases it, so a
// missing Lua function or bad ease is reported before a run.
func validate(file string, lua *scripting.Engine, log *zap.Logger) error {
	table, err := data.LoadTimelines(file)
	if err != nil {
		printFail(err.Error())
		return err
	}
	ctx := action.NewContext(log)
	env := data.Env{Lua: lua, Board: data.NewBlackboard()}

	failed := 0
	for _, name := range table.Names() {
		root, err := table.Get(name).Compile(ctx, env)
		if err != nil {
			failed++
			printFail(err.Error())
			continue
		}
		if err := ctx.Release(root); err != nil {
			return err
		}
		printOK(name)
	}
	ctx.Flush()
	if failed > 0 {
		return fmt.Errorf("%d of %d timelines failed to compile", failed, table.Count())
	}
	return nil
}

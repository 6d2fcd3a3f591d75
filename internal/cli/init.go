package cli

// InitCmd creates the data directory and an empty store.
type InitCmd struct{}

func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.printf("Initialized %s storage at: %s\n", ctx.Store.Kind(), ctx.Store.Path())
	return nil
}

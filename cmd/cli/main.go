package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/daybook/internal/client/cli"
)

func main() {

	ctx := context.Background()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}

}

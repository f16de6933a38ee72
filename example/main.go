package main

import (
	"fmt"
	"os"

	"github.com/overlaykit/overlay/definition"
	"github.com/overlaykit/overlay/runtime"
)

// Demonstrates union-mounting a base scope with a patch layer and reading
// the merged resources.
func main() {
	base := definition.NewScope().
		Add("greeting", definition.NewResource(nil, func(definition.Args) (any, error) {
			return "Hello", nil
		})).
		Add("name", definition.Const("World")).
		Add("message", definition.NewResource([]definition.Name{"greeting", "name"}, func(args definition.Args) (any, error) {
			return fmt.Sprintf("%s, %s!", args["greeting"], args["name"]), nil
		}))

	excited := definition.NewScope().
		Add("greeting", definition.NewPatch(nil, func(definition.Args) (any, error) {
			return func(value any) any { return value.(string) + " there" }, nil
		}))

	root, err := runtime.Evaluate(base, excited)
	if err != nil {
		fmt.Fprintf(os.Stderr, "evaluate: %v\n", err)
		os.Exit(1)
	}
	message, err := root.Get("message")
	if err != nil {
		fmt.Fprintf(os.Stderr, "message: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(message)
}

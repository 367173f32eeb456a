package panel_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/panel"
	"github.com/aretw0/panel/pkg/adapters/echo"
	"github.com/aretw0/panel/pkg/domain"
	"github.com/aretw0/panel/pkg/registry"
)

// ExampleEngine_Ask runs a two-expert panel with the offline echo invoker.
func ExampleEngine_Ask() {
	reg, err := registry.New(
		domain.Expert{ID: "a", Description: "loves cats"},
		domain.Expert{ID: "b", Description: "loves dogs"},
	)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := panel.New(echo.New(echo.WithReply("yes")))
	if err != nil {
		log.Fatal(err)
	}

	resp, err := eng.Ask(context.Background(), reg, "pick a pet", domain.DefaultModelConfig())
	if err != nil {
		log.Fatal(err)
	}

	for _, o := range resp.Opinions {
		fmt.Printf("%s -> %s\n", o.ExpertID, o.Text)
	}
	fmt.Println(resp.FinalText)
	// Output:
	// a -> loves cats: yes
	// b -> loves dogs: yes
	// Moderator: 2 of 2 experts answered (model gpt-4o-mini).
}

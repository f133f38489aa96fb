/*
Package dsl provides a fluent builder for assembling stepflow graphs in Go.

Example usage:

	b := dsl.New()

	b.Add("fetch").Do(fetchStep).
		Then("transform").Do(transformStep).
		Then("check").Do(checkStep).
		Go("transform") // loop until check sets Done

	graph, err := b.Build()
*/
package dsl

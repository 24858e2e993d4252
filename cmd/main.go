// recommendation-service serves tiered job recommendations and exposes
// cache maintenance commands.
package main

import "jobmate/recommendation-service/internal/cli"

func main() {
	cli.Execute()
}

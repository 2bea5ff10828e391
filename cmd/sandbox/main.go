// Command sandbox rewrites compiled modules so that references to proxied
// types are redirected to their proxies, and reports references that the
// configured access lists deny.
package main

import "martianoff/sandbox/cmd/sandbox/commands"

func main() {
	commands.Execute()
}

package main

import "github.com/yungbote/songcatalog-backend/internal/cli"

func main() {
	cli.Execute()
}

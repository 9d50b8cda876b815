package main

import "github.com/nextlevelbuilder/shopchat/cmd"

func main() {
	cmd.Execute()
}

// Package main is the entry point for the jusbr command, a crawler
// for the public process search portals of the Brazilian federal
// regional courts (TRF1 through TRF6).
package main

func main() {
	Execute()
}

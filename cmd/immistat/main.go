// Command immistat loads a district-level immigrant population table and
// answers ranking, grouping and composition questions about it.
package main

func main() {
	Execute()
}

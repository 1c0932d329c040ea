// Vahti - Resource Lifecycle Scheduler
// Schedule. Scan. Reclaim.
package main

func main() {
	Execute()
}

package router

// runQueue executes queue strictly in order. For each non-nil entry it calls
// step with an advance continuation; the next entry runs only after advance
// is called. done runs once the index passes the end. There is no
// parallelism and no reordering: queue position is the sole sequencing
// mechanism of the pipeline.
func runQueue(queue []Guard, step func(Guard, func()), done func()) {
	var advance func(index int)
	advance = func(index int) {
		if index >= len(queue) {
			done()
			return
		}
		if queue[index] == nil {
			advance(index + 1)
			return
		}
		step(queue[index], func() {
			advance(index + 1)
		})
	}
	advance(0)
}

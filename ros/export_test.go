package ros

// QueuedJobs reports how many jobs wait for the spin loop of n.
func QueuedJobs(n Node) int {
	return len(n.(*defaultNode).jobChan)
}

const JobQueueSize = jobQueueSize

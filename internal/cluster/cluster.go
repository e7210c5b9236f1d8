package cluster

import "github.com/redlinehq/redline/internal/types"

// Cluster is a non-empty group of spatially close annotations. The
// first member is the seed; member order is discovery order.
type Cluster struct {
	Members []*types.Annotation
}

// Seed returns the cluster's first-seen member, whose position anchored
// the group.
func (c *Cluster) Seed() *types.Annotation {
	return c.Members[0]
}

// Group partitions annotations into clusters using seed-centered
// single-link grouping: each unvisited annotation seeds a new cluster,
// then every later unvisited annotation within threshold distance of
// the SEED joins it.
//
// Membership is deliberately judged against the seed only, not against
// other members, so two non-seed members of one cluster can be farther
// apart than the threshold. Cluster order follows seed discovery order
// and the output always partitions the input exactly.
func Group(annotations []*types.Annotation, threshold float64) []*Cluster {
	if len(annotations) == 0 {
		return nil
	}

	visited := make([]bool, len(annotations))
	var clusters []*Cluster

	for i, seed := range annotations {
		if visited[i] {
			continue
		}
		visited[i] = true
		c := &Cluster{Members: []*types.Annotation{seed}}

		for j := i + 1; j < len(annotations); j++ {
			if visited[j] {
				continue
			}
			if Distance(seed, annotations[j]) <= threshold {
				visited[j] = true
				c.Members = append(c.Members, annotations[j])
			}
		}
		clusters = append(clusters, c)
	}

	return clusters
}

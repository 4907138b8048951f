package stratagem

import "sort"

// Terrain classifies a province. The set is closed; every consumer
// switches exhaustively over these values.
type Terrain string

const (
	Plains   Terrain = "plains"
	Forest   Terrain = "forest"
	Mountain Terrain = "mountain"
	Coast    Terrain = "coast"
	River    Terrain = "river"
)

// Short returns the one-letter wire code for the terrain.
func (t Terrain) Short() string {
	switch t {
	case Plains:
		return "P"
	case Forest:
		return "F"
	case Mountain:
		return "M"
	case Coast:
		return "C"
	case River:
		return "R"
	default:
		return "?"
	}
}

// DefenseBonus is the flat strength added to a defending side on this terrain.
func (t Terrain) DefenseBonus() int {
	switch t {
	case Mountain:
		return 3
	case Forest, River:
		return 1
	default:
		return 0
	}
}

// BaseYield returns the per-turn resource production of unimproved terrain.
func (t Terrain) BaseYield() Resources {
	switch t {
	case Plains:
		return Resources{3, 0, 1}
	case Forest:
		return Resources{2, 1, 0}
	case Mountain:
		return Resources{0, 3, 1}
	case Coast:
		return Resources{2, 0, 2}
	case River:
		return Resources{2, 1, 1}
	default:
		return Resources{}
	}
}

// MapProvince is the static description of one province: terrain, display
// name, render coordinates and adjacency. Mutable per-match data (owner,
// buildings, garrison) lives on GameState, not here.
type MapProvince struct {
	ID      string
	Name    string
	Terrain Terrain
	X, Y    int
}

// WorldMap is the static province adjacency graph shared by every match.
type WorldMap struct {
	Provinces   map[string]*MapProvince
	Adjacency   map[string][]string // keyed by province ID, values sorted
	Capitals    []string            // capital province per player slot
	SecondHomes []string            // second starting province per player slot

	ids []string // all province IDs, sorted, for deterministic iteration
}

// ProvinceIDs returns all province IDs in sorted order. Iterating the map
// directly is forbidden in resolution code paths; use this instead.
func (w *WorldMap) ProvinceIDs() []string {
	return w.ids
}

// Province returns the static province record, or nil if the ID is unknown.
func (w *WorldMap) Province(id string) *MapProvince {
	return w.Provinces[id]
}

// Adjacent reports whether two provinces share an edge.
func (w *WorldMap) Adjacent(a, b string) bool {
	for _, n := range w.Adjacency[a] {
		if n == b {
			return true
		}
	}
	return false
}

// Neighbors returns the sorted adjacency list for a province.
func (w *WorldMap) Neighbors(id string) []string {
	return w.Adjacency[id]
}

// Distance returns the BFS hop count between two provinces, or -1 when no
// path exists. Neighbor expansion is in sorted order so ties are stable.
func (w *WorldMap) Distance(a, b string) int {
	if a == b {
		return 0
	}
	visited := map[string]bool{a: true}
	queue := []string{a}
	dist := 0
	for len(queue) > 0 {
		dist++
		var next []string
		for _, node := range queue {
			for _, nb := range w.Adjacency[node] {
				if nb == b {
					return dist
				}
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}
		queue = next
	}
	return -1
}

// ShortestPath returns one shortest path between two provinces including both
// endpoints, or nil when no path exists. With sorted neighbor expansion the
// returned path is the same on every call, which trade raiding depends on.
func (w *WorldMap) ShortestPath(a, b string) []string {
	if a == b {
		return []string{a}
	}
	visited := map[string]bool{a: true}
	prev := map[string]string{}
	queue := []string{a}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, nb := range w.Adjacency[node] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			prev[nb] = node
			if nb == b {
				var path []string
				for cur := b; ; cur = prev[cur] {
					path = append(path, cur)
					if cur == a {
						break
					}
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			queue = append(queue, nb)
		}
	}
	return nil
}

// buildWorld assembles a WorldMap from province and edge tables.
func buildWorld(provinces []MapProvince, edges [][2]string, capitals, secondHomes []string) *WorldMap {
	w := &WorldMap{
		Provinces:   make(map[string]*MapProvince, len(provinces)),
		Adjacency:   make(map[string][]string, len(provinces)),
		Capitals:    capitals,
		SecondHomes: secondHomes,
	}
	for i := range provinces {
		p := provinces[i]
		w.Provinces[p.ID] = &p
		w.ids = append(w.ids, p.ID)
	}
	sort.Strings(w.ids)
	for _, e := range edges {
		w.Adjacency[e[0]] = append(w.Adjacency[e[0]], e[1])
		w.Adjacency[e[1]] = append(w.Adjacency[e[1]], e[0])
	}
	for id := range w.Adjacency {
		sort.Strings(w.Adjacency[id])
	}
	return w
}

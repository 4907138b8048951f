package stratagem

import "sync"

// The tournament map: 24 provinces in a 4-fold symmetric layout.
// Four home corners of two provinces each, four frontier zones between
// neighboring players, and a high-value contested center. Coordinates are
// on a 0-1000 grid for external renderers.

var tournamentProvinces = []MapProvince{
	// NW home (slot 0)
	{ID: "frostgate", Name: "Frostgate", Terrain: Mountain, X: 120, Y: 100},
	{ID: "snowhaven", Name: "Snowhaven", Terrain: Plains, X: 80, Y: 230},
	// NE home (slot 1)
	{ID: "stormwatch", Name: "Stormwatch", Terrain: Mountain, X: 880, Y: 100},
	{ID: "windcrest", Name: "Windcrest", Terrain: Plains, X: 920, Y: 230},
	// SW home (slot 2)
	{ID: "moonhaven", Name: "Moonhaven", Terrain: Mountain, X: 120, Y: 900},
	{ID: "silverlake", Name: "Silverlake", Terrain: Plains, X: 80, Y: 770},
	// SE home (slot 3)
	{ID: "fireridge", Name: "Fireridge", Terrain: Mountain, X: 880, Y: 900},
	{ID: "emberveil", Name: "Emberveil", Terrain: Plains, X: 920, Y: 770},
	// North frontier
	{ID: "crystalpeak", Name: "Crystalpeak", Terrain: Coast, X: 500, Y: 80},
	{ID: "thornfield", Name: "Thornfield", Terrain: Forest, X: 330, Y: 180},
	{ID: "ironridge", Name: "Ironridge", Terrain: River, X: 670, Y: 180},
	// South frontier
	{ID: "darkhollow", Name: "Darkhollow", Terrain: Coast, X: 500, Y: 920},
	{ID: "ashford", Name: "Ashford", Terrain: Forest, X: 330, Y: 820},
	{ID: "stonekeep", Name: "Stonekeep", Terrain: River, X: 670, Y: 820},
	// West frontier
	{ID: "mistwood", Name: "Mistwood", Terrain: Forest, X: 60, Y: 500},
	{ID: "deepwood", Name: "Deepwood", Terrain: River, X: 200, Y: 420},
	{ID: "oakmere", Name: "Oakmere", Terrain: River, X: 200, Y: 580},
	// East frontier
	{ID: "sunharbor", Name: "Sunharbor", Terrain: Coast, X: 940, Y: 500},
	{ID: "goldreach", Name: "Goldreach", Terrain: River, X: 800, Y: 420},
	{ID: "coralcove", Name: "Coralcove", Terrain: River, X: 800, Y: 580},
	// Center
	{ID: "kingscross", Name: "King's Cross", Terrain: Plains, X: 500, Y: 380},
	{ID: "dragonseat", Name: "Dragon's Seat", Terrain: Mountain, X: 500, Y: 620},
	{ID: "tradeway", Name: "Tradeway", Terrain: Coast, X: 380, Y: 500},
	{ID: "highmarket", Name: "Highmarket", Terrain: Coast, X: 620, Y: 500},
}

// Each edge listed once; buildWorld mirrors them.
var tournamentEdges = [][2]string{
	{"frostgate", "snowhaven"}, {"frostgate", "thornfield"}, {"frostgate", "crystalpeak"},
	{"snowhaven", "thornfield"}, {"snowhaven", "deepwood"}, {"snowhaven", "mistwood"},
	{"stormwatch", "windcrest"}, {"stormwatch", "ironridge"}, {"stormwatch", "crystalpeak"},
	{"windcrest", "ironridge"}, {"windcrest", "goldreach"}, {"windcrest", "sunharbor"},
	{"moonhaven", "silverlake"}, {"moonhaven", "ashford"}, {"moonhaven", "darkhollow"},
	{"silverlake", "ashford"}, {"silverlake", "oakmere"}, {"silverlake", "mistwood"},
	{"fireridge", "emberveil"}, {"fireridge", "stonekeep"}, {"fireridge", "darkhollow"},
	{"emberveil", "stonekeep"}, {"emberveil", "coralcove"}, {"emberveil", "sunharbor"},
	{"crystalpeak", "thornfield"}, {"crystalpeak", "ironridge"},
	{"thornfield", "deepwood"}, {"thornfield", "kingscross"},
	{"ironridge", "goldreach"}, {"ironridge", "kingscross"},
	{"darkhollow", "ashford"}, {"darkhollow", "stonekeep"},
	{"ashford", "oakmere"}, {"ashford", "dragonseat"},
	{"stonekeep", "coralcove"}, {"stonekeep", "dragonseat"},
	{"mistwood", "deepwood"}, {"mistwood", "oakmere"},
	{"deepwood", "tradeway"}, {"deepwood", "kingscross"},
	{"oakmere", "tradeway"}, {"oakmere", "dragonseat"},
	{"sunharbor", "goldreach"}, {"sunharbor", "coralcove"},
	{"goldreach", "highmarket"}, {"goldreach", "kingscross"},
	{"coralcove", "highmarket"}, {"coralcove", "dragonseat"},
	{"kingscross", "tradeway"}, {"kingscross", "highmarket"},
	{"dragonseat", "tradeway"}, {"dragonseat", "highmarket"},
	{"tradeway", "highmarket"},
}

var tournamentCapitals = []string{"frostgate", "stormwatch", "moonhaven", "fireridge"}
var tournamentSecondHomes = []string{"snowhaven", "windcrest", "silverlake", "emberveil"}

var (
	tournamentOnce  sync.Once
	tournamentWorld *WorldMap
)

// TournamentMap returns the shared static map. The returned value is
// read-only; matches never mutate it. Safe for concurrent callers.
func TournamentMap() *WorldMap {
	tournamentOnce.Do(func() {
		tournamentWorld = buildWorld(tournamentProvinces, tournamentEdges,
			tournamentCapitals, tournamentSecondHomes)
	})
	return tournamentWorld
}

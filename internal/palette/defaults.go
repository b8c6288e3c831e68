package palette

// StreetScene is the default street-scene palette. Entries are ordered by
// their color key string so the first-seen category ids come out
// background=1, bicycle=2, car=3, …
var StreetScene = []Spec{
	{Color: "0,0,0", Label: "background"},
	{Color: "0,64,64", Label: "bicycle"},
	{Color: "113,174,206", Label: "car"},
	{Color: "128,160,160", Label: "motorcycle"},
	{Color: "144,32,192", Label: "vegetation"},
	{Color: "144,96,128", Label: "truck"},
	{Color: "19,92,211", Label: "traffic light"},
	{Color: "192,96,96", Label: "person"},
	{Color: "208,32,192", Label: "wall"},
	{Color: "224,128,0", Label: "bridge"},
	{Color: "230,63,228", Label: "parking area"},
	{Color: "236,28,159", Label: "traffic sign"},
	{Color: "240,146,26", Label: "sidewalk"},
	{Color: "240,240,20", Label: "building"},
	{Color: "240,64,64", Label: "terrain"},
	{Color: "250,125,187", Label: "road"},
	{Color: "255,0,124", Label: "pole"},
	{Color: "32,224,128", Label: "fence"},
	{Color: "32,64,128", Label: "bus"},
	{Color: "64,0,160", Label: "ground"},
	{Color: "64,117,128", Label: "sky"},
}

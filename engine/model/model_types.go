package model

// Kind selects the renderable variant built for a scene table entry.
type Kind int

const (
	KindGeneric Kind = iota
	KindFish
	KindInner
	KindOutside
	KindSeaweed
)

// Size class of a fish species, used when distributing the total population.
type FishSize int

const (
	FishSmall FishSize = iota
	FishMedium
	FishBig
)

// SceneEntry describes one model of the static scene table. Program names are
// optional; when empty the program is derived from the textures the model
// carries.
type SceneEntry struct {
	Name     string
	Kind     Kind
	Blend    bool
	Program  [2]string
	FishInfo *FishInfo
}

// FishInfo holds the per-species swim parameters consumed by the fish update
// loop and the vertex deformation uniforms.
type FishInfo struct {
	Size         FishSize
	Speed        float32
	SpeedRange   float32
	Radius       float32
	RadiusRange  float32
	TailSpeed    float32
	HeightOffset float32
	HeightRange  float32

	FishLength     float32
	FishWaveLength float32
	FishBendAmount float32
}

// EnvironmentTable is the fixed draw order for the non-fish scene. Environment
// models render before any fish species.
var EnvironmentTable = []SceneEntry{
	{Name: "EnvironmentBox", Kind: KindOutside, Program: [2]string{"diffuseVertexShader", "diffuseFragmentShader"}},
	{Name: "FloorBase_Baked", Kind: KindGeneric},
	{Name: "FloorCenter", Kind: KindGeneric},
	{Name: "RuinColumn", Kind: KindGeneric},
	{Name: "Arch", Kind: KindGeneric},
	{Name: "RockA", Kind: KindGeneric},
	{Name: "RockB", Kind: KindGeneric},
	{Name: "RockC", Kind: KindGeneric},
	{Name: "Stone", Kind: KindGeneric},
	{Name: "Stones", Kind: KindGeneric},
	{Name: "Coral", Kind: KindGeneric},
	{Name: "CoralStoneA", Kind: KindGeneric},
	{Name: "CoralStoneB", Kind: KindGeneric},
	{Name: "SunknShip", Kind: KindGeneric},
	{Name: "SunknSub", Kind: KindGeneric},
	{Name: "TreasureChest", Kind: KindGeneric},
	{Name: "SupportBeams", Kind: KindGeneric},
	{Name: "GlobeBase", Kind: KindGeneric, Program: [2]string{"diffuseVertexShader", "diffuseFragmentShader"}},
	{Name: "GlobeInner", Kind: KindInner, Blend: true, Program: [2]string{"innerRefractionMapVertexShader", "innerRefractionMapFragmentShader"}},
	{Name: "SeaweedA", Kind: KindSeaweed, Blend: true, Program: [2]string{"seaweedVertexShader", "seaweedFragmentShader"}},
	{Name: "SeaweedB", Kind: KindSeaweed, Blend: true, Program: [2]string{"seaweedVertexShader", "seaweedFragmentShader"}},
}

// FishTable lists the five fish species in draw order with their swim and
// deformation parameters.
var FishTable = []SceneEntry{
	{
		Name: "SmallFishA", Kind: KindFish,
		Program: [2]string{"fishVertexShader", "fishReflectionFragmentShader"},
		FishInfo: &FishInfo{
			Size: FishSmall, Speed: 1.0, SpeedRange: 1.5,
			Radius: 30, RadiusRange: 25, TailSpeed: 10,
			HeightOffset: 0, HeightRange: 16,
			FishLength: 10, FishWaveLength: 1, FishBendAmount: 2,
		},
	},
	{
		Name: "MediumFishA", Kind: KindFish,
		Program: [2]string{"fishVertexShader", "fishNormalMapFragmentShader"},
		FishInfo: &FishInfo{
			Size: FishMedium, Speed: 1.0, SpeedRange: 2.0,
			Radius: 10, RadiusRange: 20, TailSpeed: 1,
			HeightOffset: 0, HeightRange: 16,
			FishLength: 10, FishWaveLength: -2, FishBendAmount: 2,
		},
	},
	{
		Name: "MediumFishB", Kind: KindFish,
		Program: [2]string{"fishVertexShader", "fishReflectionFragmentShader"},
		FishInfo: &FishInfo{
			Size: FishMedium, Speed: 0.5, SpeedRange: 4.0,
			Radius: 10, RadiusRange: 20, TailSpeed: 3,
			HeightOffset: -8, HeightRange: 5,
			FishLength: 10, FishWaveLength: -2, FishBendAmount: 2,
		},
	},
	{
		Name: "BigFishA", Kind: KindFish,
		Program: [2]string{"fishVertexShader", "fishNormalMapFragmentShader"},
		FishInfo: &FishInfo{
			Size: FishBig, Speed: 0.5, SpeedRange: 0.5,
			Radius: 50, RadiusRange: 45, TailSpeed: 1,
			HeightOffset: 0, HeightRange: 16,
			FishLength: 10, FishWaveLength: -1, FishBendAmount: 0.5,
		},
	},
	{
		Name: "BigFishB", Kind: KindFish,
		Program: [2]string{"fishVertexShader", "fishNormalMapFragmentShader"},
		FishInfo: &FishInfo{
			Size: FishBig, Speed: 0.5, SpeedRange: 0.5,
			Radius: 45, RadiusRange: 37, TailSpeed: 1,
			HeightOffset: 0, HeightRange: 20,
			FishLength: 10, FishWaveLength: -0.7, FishBendAmount: 0.3,
		},
	},
}

// Mesh is the decoded geometry for one model: one byte stream per vertex
// attribute plus the index stream, produced by the loader.
type Mesh struct {
	Positions []byte
	Normals   []byte
	TexCoords []byte
	Tangents  []byte
	Binormals []byte

	Indices    []byte
	IndexCount int
}

// Streams returns the attribute streams in vertex slot order. Tangent and
// binormal streams are included only when present.
//
// Returns:
//   - [][]byte: the attribute streams
func (m *Mesh) Streams() [][]byte {
	streams := [][]byte{m.Positions, m.Normals, m.TexCoords}
	if len(m.Tangents) > 0 {
		streams = append(streams, m.Tangents, m.Binormals)
	}
	return streams
}

// NormalMapped reports whether the mesh carries tangent-space streams.
func (m *Mesh) NormalMapped() bool {
	return len(m.Tangents) > 0
}

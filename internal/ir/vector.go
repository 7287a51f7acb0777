package ir

// VectorType is the feature category a Vector encodes.
type VectorType string

const (
	VectorInstructionHash     VectorType = "instruction_hash"
	VectorIdentityHash        VectorType = "identity_hash"
	VectorNameHash            VectorType = "name_hash"
	VectorAssemblyHash        VectorType = "assembly_hash"
	VectorMnemonicHash        VectorType = "mnemonic_hash"
	VectorMnemonicHist        VectorType = "mnemonic_hist"
	VectorBasicBlockSizeHist  VectorType = "basicblocksize_hist"
	VectorBasicBlockAdjacency VectorType = "basicblock_adjacency"
)

// vectorLabels holds display names in declaration order.
var vectorLabels = []struct {
	Type  VectorType
	Label string
}{
	{VectorInstructionHash, "Instruction Hash"},
	{VectorIdentityHash, "Identity Hash"},
	{VectorNameHash, "Name Hash"},
	{VectorAssemblyHash, "Assembly Hash"},
	{VectorMnemonicHash, "Mnemonic Hash"},
	{VectorMnemonicHist, "Mnemonic Hist"},
	{VectorBasicBlockSizeHist, "Basic Block Size Hist"},
	{VectorBasicBlockAdjacency, "Basic Block Adjacency"},
}

// VectorTypes returns every known vector category in declaration order.
func VectorTypes() []VectorType {
	out := make([]VectorType, len(vectorLabels))
	for i, l := range vectorLabels {
		out[i] = l.Type
	}
	return out
}

// Valid reports whether t is a known category.
func (t VectorType) Valid() bool {
	for _, l := range vectorLabels {
		if l.Type == t {
			return true
		}
	}
	return false
}

// Label returns the display name of the category.
func (t VectorType) Label() string {
	for _, l := range vectorLabels {
		if l.Type == t {
			return l.Label
		}
	}
	return string(t)
}

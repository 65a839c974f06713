package domain

// Gallery is a full materialization of the enrolled faces used for matching.
// Embeddings live in one flat slice of Len()*Dim values so a recognition scan
// walks contiguous memory.
type Gallery struct {
	Dim      int
	FaceIDs  []string
	OwnerIDs []string
	Vectors  []float32
	// Skipped counts rows left out because their embedding was malformed.
	Skipped int
}

// NewGallery returns an empty gallery with room for capacity entries.
func NewGallery(dim, capacity int) *Gallery {
	return &Gallery{
		Dim:      dim,
		FaceIDs:  make([]string, 0, capacity),
		OwnerIDs: make([]string, 0, capacity),
		Vectors:  make([]float32, 0, capacity*dim),
	}
}

// Add appends one entry. It reports false, and leaves the gallery untouched,
// when the entry is incomplete or the embedding has the wrong length.
func (g *Gallery) Add(faceID, ownerID string, embedding []float32) bool {
	if faceID == "" || ownerID == "" || len(embedding) != g.Dim {
		g.Skipped++
		return false
	}
	g.FaceIDs = append(g.FaceIDs, faceID)
	g.OwnerIDs = append(g.OwnerIDs, ownerID)
	g.Vectors = append(g.Vectors, embedding...)
	return true
}

func (g *Gallery) Len() int {
	if g == nil {
		return 0
	}
	return len(g.FaceIDs)
}

// Vector returns the i-th embedding as a view into the flat buffer.
func (g *Gallery) Vector(i int) []float32 {
	off := i * g.Dim
	return g.Vectors[off : off+g.Dim : off+g.Dim]
}

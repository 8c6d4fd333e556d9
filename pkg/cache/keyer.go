package cache

import "strings"

// Key kinds. Every key produced by a [Keyer] carries one of them as the
// segment before its hash.
const (
	KindScene    = "scene"
	KindArtifact = "artifact"
	KindOther    = "other"
)

// KeyKind reports which kind of render output key names. Scope prefixes
// added by [ScopedKeyer] are ignored.
func KeyKind(key string) string {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return KindOther
	}
	head := key[:i]
	switch kind := head[strings.LastIndex(head, ":")+1:]; kind {
	case KindScene, KindArtifact:
		return kind
	}
	return KindOther
}

// Keyer derives cache keys.
type Keyer interface {
	// SceneKey identifies a scene rendered from a layout.
	SceneKey(layoutHash string, opts SceneKeyOpts) string
	// ArtifactKey identifies a scene materialised in one format.
	ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string
}

// SceneKeyOpts lists the inputs that change a scene for a fixed layout.
type SceneKeyOpts struct {
	X, Y, Width, Height float64
	Header              float64
	Highlight           []string
}

// ArtifactKeyOpts lists the inputs that change an artifact for a fixed scene.
type ArtifactKeyOpts struct {
	Format      string
	Theme       string
	Interactive bool
	Columns     int
}

// DefaultKeyer hashes options into the key.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// SceneKey returns "scene:<hash>".
func (DefaultKeyer) SceneKey(layoutHash string, opts SceneKeyOpts) string {
	return hashKey(KindScene, layoutHash, opts)
}

// ArtifactKey returns "artifact:<hash>".
func (DefaultKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return hashKey(KindArtifact, sceneHash, opts)
}

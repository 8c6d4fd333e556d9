package cache

// ScopedKeyer wraps a Keyer with a prefix so several views or hosts can
// share one backend without colliding.
//
// Example usage:
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "view:roadmap:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// SceneKey generates a prefixed scene key.
func (k *ScopedKeyer) SceneKey(layoutHash string, opts SceneKeyOpts) string {
	return k.prefix + k.inner.SceneKey(layoutHash, opts)
}

// ArtifactKey generates a prefixed artifact key.
func (k *ScopedKeyer) ArtifactKey(sceneHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(sceneHash, opts)
}

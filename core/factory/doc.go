// Package factory instantiates pluggable components (result stores, metrics
// sinks) from a type name and a map of raw settings.
//
//	reg := factory.NewRegistry[io.Reader]()
//	_ = reg.Register("file", func(conf map[string]any) (io.Reader, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Open(c.Path)
//	})
package factory

package audioengine

import (
	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/errors"
)

// enumerate returns a fresh snapshot of dir's endpoints with the default
// endpoint first and the rest in platform order. On failure it returns an
// empty, non-nil slice and the error.
func enumerate(sess platform.Session, dir platform.Direction) ([]platform.EndpointDescriptor, error) {
	raw, err := sess.Enumerate(dir)
	if err != nil {
		return []platform.EndpointDescriptor{}, platformError("enumerate", dir, err)
	}

	out := make([]platform.EndpointDescriptor, 0, len(raw))
	defaultSeen := false
	for _, ep := range raw {
		if ep.Direction != dir {
			continue
		}
		ep.Name = platform.Truncate(ep.Name)
		ep.ID = platform.Truncate(ep.ID)
		if ep.IsDefault && !defaultSeen {
			defaultSeen = true
			out = append([]platform.EndpointDescriptor{ep}, out...)
			continue
		}
		// only one endpoint per direction may carry the default flag
		ep.IsDefault = false
		out = append(out, ep)
	}
	return out, nil
}

// resolveEndpoint maps a logical device index onto an endpoint. Index -1 is
// the default endpoint, re-resolved on every call.
func resolveEndpoint(sess platform.Session, dir platform.Direction, index int) (platform.EndpointDescriptor, error) {
	list, err := enumerate(sess, dir)
	if err != nil {
		return platform.EndpointDescriptor{}, err
	}

	if index == -1 {
		if len(list) > 0 && list[0].IsDefault {
			return list[0], nil
		}
		return platform.EndpointDescriptor{}, notFound(dir, index, len(list))
	}
	if index < 0 || index >= len(list) {
		return platform.EndpointDescriptor{}, notFound(dir, index, len(list))
	}
	return list[index], nil
}

func notFound(dir platform.Direction, index, count int) error {
	return errors.Newf("no %s endpoint at index %d", dir, index).
		Component(componentEngine).
		Category(errors.CategoryNotFound).
		Context("operation", "bind").
		Context("direction", dir.String()).
		Context("index", index).
		Context("endpoint_count", count).
		Build()
}

// Package flatten projects a resolved graph into the denormalized flat
// model: one record per release with the referenced resources' metadata
// inlined in reference order.
package flatten

import (
	"strings"
	"time"

	"github.com/ddexkit/ddex/errors"
	"github.com/ddexkit/ddex/flat"
	"github.com/ddexkit/ddex/graph"
)

// Options controls how much pass-through data survives flattening. The
// default is lossy: raw extensions and comments are dropped unless asked
// for.
type Options struct {
	IncludeRawExtensions    bool
	IncludeComments         bool
	PreserveUnknownElements bool
}

// Flatten projects the graph. The message must be fully resolved first;
// unresolved references are surfaced here rather than silently dropped.
func Flatten(msg *graph.Message, opts Options) (*flat.Message, error) {
	if msg.Resolution == nil {
		return nil, errors.New(errors.CodeStructure, "flatten requires a resolved graph")
	}
	if failed := msg.Resolution.Failed(); len(failed) > 0 {
		list := make(errors.List, 0, len(failed))
		for _, entry := range failed {
			list = append(list, entry.Err)
		}
		return nil, list
	}

	out := &flat.Message{
		MessageID:   msg.Header.MessageID,
		MessageType: msg.Header.MessageType,
		CreatedAt:   msg.Header.CreatedDateTime,
		Sender:      organization(msg.Header.Sender),
		Recipient:   organization(msg.Header.Recipient),
		Version:     msg.Version,
		Profile:     msg.Profile,
	}

	resourceIndex := make(map[string]int, len(msg.Resources))
	for i, res := range msg.Resources {
		resourceIndex[res.Reference] = i
	}

	var totalDuration time.Duration
	trackCount := 0
	for i := range msg.Releases {
		rel := &msg.Releases[i]
		fr := flat.Release{
			GraphIndex:     i,
			Reference:      rel.Reference,
			ICPN:           rel.ICPN,
			Title:          rel.Title,
			Subtitle:       rel.Subtitle,
			Artist:         rel.Artist,
			ReleaseType:    rel.ReleaseType,
			Genre:          rel.Genre,
			SubGenre:       rel.SubGenre,
			ReleaseDate:    rel.ReleaseDate,
			TerritoryCodes: rel.TerritoryCodes,
		}
		for _, ref := range rel.ResourceReferences {
			// Empty reference entries pass resolution as absent; skip
			// them here instead of inlining an arbitrary resource.
			idx, ok := resourceIndex[ref.Reference]
			if !ok {
				continue
			}
			res := msg.Resources[idx]
			track := flat.Track{
				Reference:   res.Reference,
				Kind:        res.Kind,
				ISRC:        res.ISRC,
				Title:       res.Title,
				Artist:      res.Artist,
				Duration:    res.Duration,
				TrackNumber: ref.SequenceNumber,
			}
			if track.TrackNumber == 0 {
				track.TrackNumber = res.TrackNumber
			}
			fr.Tracks = append(fr.Tracks, track)
			trackCount++
			totalDuration += parseISODuration(res.Duration)
		}
		if opts.IncludeRawExtensions || opts.PreserveUnknownElements {
			fr.Extensions = rel.Extensions
		}
		out.Releases = append(out.Releases, fr)
	}

	for _, deal := range msg.Deals {
		out.Deals = append(out.Deals, flat.Deal{
			ReleaseReference:    deal.ReleaseReference,
			CommercialModelType: deal.CommercialModelType,
			UsageTypes:          deal.UsageTypes,
			TerritoryCodes:      deal.TerritoryCodes,
			StartDate:           deal.StartDate,
			EndDate:             deal.EndDate,
		})
	}
	for _, p := range msg.Parties {
		out.Parties = append(out.Parties, flat.Party{
			Reference: p.Reference,
			Name:      p.Name,
			ID:        p.ID,
			Role:      p.Role,
		})
	}

	if opts.IncludeRawExtensions || opts.PreserveUnknownElements {
		out.Extensions = msg.Extensions
	}
	if opts.IncludeComments {
		out.Comments = msg.Comments
	}

	out.Stats = flat.Stats{
		ReleaseCount:  len(out.Releases),
		TrackCount:    trackCount,
		DealCount:     len(out.Deals),
		TotalDuration: totalDuration,
	}
	return out, nil
}

func organization(p graph.MessageParty) flat.Organization {
	org := flat.Organization{Name: p.PartyName}
	if len(p.PartyIDs) > 0 {
		org.ID = p.PartyIDs[0]
	}
	return org
}

// parseISODuration handles the PTxHxMxS subset DDEX uses. Anything it does
// not understand counts as zero rather than failing the projection.
func parseISODuration(s string) time.Duration {
	if !strings.HasPrefix(s, "PT") {
		return 0
	}
	rest := s[2:]
	var total time.Duration
	value := 0
	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			value = value*10 + int(r-'0')
		case r == 'H':
			total += time.Duration(value) * time.Hour
			value = 0
		case r == 'M':
			total += time.Duration(value) * time.Minute
			value = 0
		case r == 'S':
			total += time.Duration(value) * time.Second
			value = 0
		default:
			return total
		}
	}
	return total
}

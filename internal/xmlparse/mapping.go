package xmlparse

import (
	"strconv"
	"strings"
	"time"

	"github.com/ddexkit/ddex/graph"
)

// Vendors disagree on title and artist element shapes across ERN versions;
// the mappers accept every shape the versions in scope use (ReferenceTitle
// for 3.8.2-style feeds, DisplayTitleText for 4.x) and missing optional
// elements simply map to zero values.

func mapHeader(n *node, h *graph.MessageHeader) {
	h.MessageThreadID = n.childText("MessageThreadId")
	h.MessageID = n.childText("MessageId")
	if t := n.childText("MessageType"); t != "" {
		h.MessageType = t
	}
	if created := n.childText("MessageCreatedDateTime"); created != "" {
		if ts, err := time.Parse(time.RFC3339, created); err == nil {
			h.CreatedDateTime = ts
		}
	}
	if sender := n.child("MessageSender"); sender != nil {
		h.Sender = mapMessageParty(sender)
	}
	if recipient := n.child("MessageRecipient"); recipient != nil {
		h.Recipient = mapMessageParty(recipient)
	}
	h.ControlType = n.childText("MessageControlType")
	if trail := n.child("MessageAuditTrail"); trail != nil {
		for _, ev := range trail.children {
			if ev.name != "MessageAuditTrailEvent" {
				continue
			}
			event := graph.AuditEvent{
				EventReference: ev.childText("MessageAuditTrailEventReference"),
				EventType:      ev.childText("MessageAuditTrailEventType"),
				PartyReference: ev.childText("ResponsiblePartyReference"),
			}
			if ts, err := time.Parse(time.RFC3339, ev.childText("DateTime")); err == nil {
				event.DateTime = ts
			}
			h.AuditTrail = append(h.AuditTrail, event)
		}
	}
}

func mapMessageParty(n *node) graph.MessageParty {
	party := graph.MessageParty{
		PartyIDs:    n.childTexts("PartyId"),
		TradingName: n.childText("TradingName"),
	}
	if name := n.child("PartyName"); name != nil {
		party.PartyName = name.childText("FullName")
	}
	return party
}

func (p *parser) mapResource(n *node) graph.Resource {
	res := graph.Resource{
		Reference:                n.childText("ResourceReference"),
		Kind:                     graph.ResourceKind(n.name),
		Title:                    titleOf(n),
		Artist:                   artistOf(n),
		Duration:                 n.childText("Duration"),
		TrackNumber:              n.childInt("SequenceNumber"),
		LinkedResourceReferences: n.childTexts("LinkedResourceReference"),
	}
	for _, idName := range []string{"ResourceId", "SoundRecordingId", "VideoId", "ImageId"} {
		if id := n.child(idName); id != nil && res.ISRC == "" {
			res.ISRC = id.childText("ISRC")
		}
	}
	if p.opts.preserve() {
		res.Extensions = unknownChildren(n, knownResourceChildren, "/ResourceList/"+n.name)
	}
	return res
}

func (p *parser) mapRelease(n *node) graph.Release {
	rel := graph.Release{
		Reference:       n.childText("ReleaseReference"),
		Title:           titleOf(n),
		Subtitle:        subtitleOf(n),
		Artist:          artistOf(n),
		ReleaseType:     n.childText("ReleaseType"),
		ReleaseDate:     n.childText("ReleaseDate"),
		PartyReferences: n.childTexts("ReleasePartyReference"),
		TerritoryCodes:  n.childTexts("TerritoryCode"),
	}
	if id := n.child("ReleaseId"); id != nil {
		rel.ICPN = id.childText("ICPN")
	}
	if genre := n.child("Genre"); genre != nil {
		rel.Genre = genre.childText("GenreText")
		rel.SubGenre = genre.childText("SubGenre")
	}
	if list := n.child("ReleaseResourceReferenceList"); list != nil {
		for _, entry := range list.children {
			if entry.name != "ReleaseResourceReference" {
				continue
			}
			rel.ResourceReferences = append(rel.ResourceReferences, mapResourceReference(entry, len(rel.ResourceReferences)))
		}
	}
	if p.opts.preserve() {
		rel.Extensions = unknownChildren(n, knownReleaseChildren, "/ReleaseList/Release")
	}
	return rel
}

// mapResourceReference accepts both the flat shape
// <ReleaseResourceReference SequenceNumber="1">A1</ReleaseResourceReference>
// and the legacy nested shape carrying SequenceNumber and the reference as
// child elements.
func mapResourceReference(entry *node, index int) graph.ResourceReference {
	ref := graph.ResourceReference{SequenceNumber: index + 1}
	if seq := entry.attr("SequenceNumber"); seq != "" {
		if v, err := strconv.Atoi(seq); err == nil {
			ref.SequenceNumber = v
		}
	}
	if len(entry.children) == 0 {
		ref.Reference = trimmedText(entry)
		return ref
	}
	if seq := entry.childInt("SequenceNumber"); seq != 0 {
		ref.SequenceNumber = seq
	}
	ref.Reference = entry.childText("ReleaseResourceReference")
	return ref
}

func mapDeal(n *node) graph.Deal {
	deal := graph.Deal{
		ReleaseReference: n.childText("DealReleaseReference"),
	}
	terms := n.child("DealTerms")
	if inner := n.child("Deal"); terms == nil && inner != nil {
		terms = inner.child("DealTerms")
	}
	if terms == nil {
		return deal
	}
	deal.CommercialModelType = terms.childText("CommercialModelType")
	deal.UsageTypes = terms.childTexts("UseType")
	deal.TerritoryCodes = terms.childTexts("TerritoryCode")
	if validity := terms.child("ValidityPeriod"); validity != nil {
		deal.StartDate = validity.childText("StartDate")
		deal.EndDate = validity.childText("EndDate")
	}
	return deal
}

func mapParty(n *node) graph.Party {
	party := graph.Party{
		Reference: n.childText("PartyReference"),
		ID:        n.childText("PartyId"),
		Role:      n.childText("PartyRole"),
	}
	if name := n.child("PartyName"); name != nil {
		party.Name = name.childText("FullName")
	}
	return party
}

func titleOf(n *node) string {
	if t := n.childText("DisplayTitleText"); t != "" {
		return t
	}
	if ref := n.child("ReferenceTitle"); ref != nil {
		return ref.childText("TitleText")
	}
	return ""
}

func subtitleOf(n *node) string {
	if t := n.childText("DisplaySubTitle"); t != "" {
		return t
	}
	if ref := n.child("ReferenceTitle"); ref != nil {
		return ref.childText("SubTitle")
	}
	return ""
}

func artistOf(n *node) string {
	if a := n.childText("DisplayArtistName"); a != "" {
		return a
	}
	if artist := n.child("DisplayArtist"); artist != nil {
		if name := artist.child("PartyName"); name != nil {
			return name.childText("FullName")
		}
	}
	return ""
}

var knownResourceChildren = map[string]bool{
	"ResourceReference": true, "Type": true, "ResourceId": true,
	"SoundRecordingId": true, "VideoId": true, "ImageId": true,
	"ReferenceTitle": true, "DisplayTitleText": true,
	"DisplayArtistName": true, "DisplayArtist": true,
	"Duration": true, "SequenceNumber": true, "LinkedResourceReference": true,
}

var knownReleaseChildren = map[string]bool{
	"ReleaseReference": true, "ReleaseType": true, "ReleaseId": true,
	"ReferenceTitle": true, "DisplayTitleText": true, "DisplaySubTitle": true,
	"DisplayArtistName": true, "DisplayArtist": true,
	"ReleaseResourceReferenceList": true, "Genre": true, "ReleaseDate": true,
	"ReleasePartyReference": true, "TerritoryCode": true,
}

func unknownChildren(n *node, known map[string]bool, path string) []graph.Extension {
	var out []graph.Extension
	for _, c := range n.children {
		if !known[c.name] {
			out = append(out, graph.Extension{Path: path, Raw: c.rawXML()})
		}
	}
	return out
}

func trimmedText(n *node) string {
	return strings.TrimSpace(n.text)
}

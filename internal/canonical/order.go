package canonical

import "strings"

// Canonical ordering is schema-derived: each ERN version fixes the child
// sequence of every composite element and the attribute sequence of every
// element type. The tables below are maintained per version rather than
// inferred from input, so logically-equal trees always serialize in the
// same order.

// Namespaces by ERN version string.
var namespaces = map[string]string{
	"3.8.2": "http://ddex.net/xml/ern/382",
	"4.2":   "http://ddex.net/xml/ern/42",
	"4.3":   "http://ddex.net/xml/ern/43",
}

// XSINamespace is the XML Schema instance namespace bound to the xsi prefix.
const XSINamespace = "http://www.w3.org/2001/XMLSchema-instance"

// NamespaceFor returns the ERN namespace URI for a version string.
func NamespaceFor(version string) (string, bool) {
	ns, ok := namespaces[version]
	return ns, ok
}

// SchemaLocationFor returns the xsi:schemaLocation value for a version.
func SchemaLocationFor(version string) string {
	ns, ok := namespaces[version]
	if !ok {
		return ""
	}
	return ns + " " + ns + "/release-notification.xsd"
}

// baseChildOrder is shared across versions; versioned tables override or
// extend it.
var baseChildOrder = map[string][]string{
	"MessageHeader": {
		"MessageThreadId",
		"MessageId",
		"MessageType",
		"MessageFileName",
		"MessageSender",
		"SentOnBehalfOf",
		"MessageRecipient",
		"MessageCreatedDateTime",
		"MessageAuditTrail",
		"MessageControlType",
	},
	"MessageSender":    {"PartyId", "PartyName", "TradingName"},
	"MessageRecipient": {"PartyId", "PartyName", "TradingName"},
	"PartyName":        {"FullName", "FullNameAsciiTranscribed", "AbbreviatedName"},
	"MessageAuditTrail": {
		"MessageAuditTrailEvent",
	},
	"MessageAuditTrailEvent": {
		"MessagingPartyDescriptor",
		"DateTime",
	},
	"Party": {
		"PartyReference",
		"PartyId",
		"PartyName",
		"PartyRole",
	},
	"SoundRecording": {
		"ResourceReference",
		"Type",
		"ResourceId",
		"SoundRecordingId",
		"ReferenceTitle",
		"DisplayTitleText",
		"DisplayArtistName",
		"DisplayArtist",
		"Duration",
		"SequenceNumber",
		"LinkedResourceReference",
	},
	"Image": {
		"ResourceReference",
		"Type",
		"ResourceId",
		"ImageId",
		"ReferenceTitle",
		"DisplayTitleText",
		"LinkedResourceReference",
	},
	"Video": {
		"ResourceReference",
		"Type",
		"ResourceId",
		"VideoId",
		"ReferenceTitle",
		"DisplayTitleText",
		"DisplayArtistName",
		"DisplayArtist",
		"Duration",
		"LinkedResourceReference",
	},
	"ResourceId":       {"ISRC", "ISAN", "GRid", "ProprietaryId"},
	"SoundRecordingId": {"ISRC", "ProprietaryId"},
	"ReferenceTitle":   {"TitleText", "SubTitle"},
	"Release": {
		"ReleaseReference",
		"ReleaseType",
		"ReleaseId",
		"ReferenceTitle",
		"DisplayTitleText",
		"DisplaySubTitle",
		"DisplayArtistName",
		"DisplayArtist",
		"ReleaseResourceReferenceList",
		"ReleaseLabelReference",
		"Genre",
		"ReleaseDate",
		"OriginalReleaseDate",
		"ReleasePartyReference",
		"TerritoryCode",
		"ExcludedTerritoryCode",
	},
	"ReleaseId": {"GRid", "ISRC", "ICPN", "CatalogNumber", "ProprietaryId"},
	"Genre":     {"GenreText", "SubGenre"},
	"ReleaseResourceReferenceList": {
		"ReleaseResourceReference",
	},
	"ReleaseDeal": {
		"DealReleaseReference",
		"Deal",
	},
	"Deal": {"DealReference", "DealTerms"},
	"DealTerms": {
		"CommercialModelType",
		"UseType",
		"Usage",
		"TerritoryCode",
		"ExcludedTerritoryCode",
		"ValidityPeriod",
		"PriceInformation",
	},
	"ValidityPeriod": {"StartDate", "EndDate"},
}

// rootChildOrder is the top-level NewReleaseMessage sequence; 3.8.2 places
// an UpdateIndicator between the header and the lists.
var rootChildOrder = map[string][]string{
	"3.8.2": {
		"MessageHeader",
		"UpdateIndicator",
		"IsBackfill",
		"WorkList",
		"ResourceList",
		"CollectionList",
		"ReleaseList",
		"DealList",
	},
	"4.2": {
		"MessageHeader",
		"PartyList",
		"ResourceList",
		"ChapterList",
		"ReleaseList",
		"DealList",
	},
	"4.3": {
		"MessageHeader",
		"PartyList",
		"ResourceList",
		"ChapterList",
		"ReleaseList",
		"DealList",
		"SupplementalDocumentList",
	},
}

// attrOrder fixes attribute emission order per element type. Attributes not
// listed are emitted after the known ones, sorted lexicographically.
var attrOrder = map[string][]string{
	"NewReleaseMessage": {
		"xmlns:ern",
		"xmlns:xsi",
		"xsi:schemaLocation",
		"MessageSchemaVersionId",
		"BusinessTransactionId",
		"LanguageAndScriptCode",
	},
	"ReleaseResourceReference": {"SequenceNumber", "ReleaseResourceType"},
	"ReferenceTitle":           {"LanguageAndScriptCode"},
	"TitleText":                {"LanguageAndScriptCode"},
	"DisplayTitleText":         {"LanguageAndScriptCode"},
	"PartyName":                {"LanguageAndScriptCode"},
}

// Ordering resolves the canonical tables for one ERN version.
type Ordering struct {
	version string
}

// OrderingFor returns the ordering tables for a version string.
func OrderingFor(version string) Ordering {
	return Ordering{version: version}
}

// ChildOrder returns the canonical child sequence for an element, if fixed.
// The root element carries the ern prefix; tables are keyed unprefixed.
func (o Ordering) ChildOrder(element string) ([]string, bool) {
	element = strings.TrimPrefix(element, "ern:")
	if element == "NewReleaseMessage" {
		order, ok := rootChildOrder[o.version]
		if !ok {
			order = rootChildOrder["4.3"]
		}
		return order, true
	}
	order, ok := baseChildOrder[element]
	return order, ok
}

// AttrOrder returns the canonical attribute sequence for an element, if fixed.
func (o Ordering) AttrOrder(element string) ([]string, bool) {
	order, ok := attrOrder[strings.TrimPrefix(element, "ern:")]
	return order, ok
}

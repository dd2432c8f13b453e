// Package registry holds the static table of integration event type definitions.
// Each definition pairs a stable name with a match predicate over inbound domain
// events, a path template and an optional feature flag gate. Names are persisted
// in the outbox, so they are append-only: renaming or deleting a name that is
// still being emitted is unsafe.
package registry

import (
	"strings"

	eventDomain "github.com/allisson/integration-events/internal/event/domain"
	apperrors "github.com/allisson/integration-events/internal/errors"
)

// Integration event type names. Append-only.
const (
	PersonStatusChanged                   = "PERSON_STATUS_CHANGED"
	MappaDetailChanged                    = "MAPPA_DETAIL_CHANGED"
	RiskScoreChanged                      = "RISK_SCORE_CHANGED"
	DynamicRisksChanged                   = "DYNAMIC_RISKS_CHANGED"
	ProbationStatusChanged                = "PROBATION_STATUS_CHANGED"
	KeyDatesAndAdjustmentsPrisonerChanged = "KEY_DATES_AND_ADJUSTMENTS_PRISONER_CHANGED"
	PersonSentencesChanged                = "PERSON_SENTENCES_CHANGED"
	PersonAddressChanged                  = "PERSON_ADDRESS_CHANGED"
	PersonContactsChanged                 = "PERSON_CONTACTS_CHANGED"
	PersonContactChanged                  = "PERSON_CONTACT_CHANGED"
	PersonIEPLevelChanged                 = "PERSON_IEP_LEVEL_CHANGED"
	PersonVisitRestrictionsChanged        = "PERSON_VISIT_RESTRICTIONS_CHANGED"
	PersonVisitOrdersChanged              = "PERSON_VISIT_ORDERS_CHANGED"
	PersonFutureVisitsChanged             = "PERSON_FUTURE_VISITS_CHANGED"
	PersonAlertsChanged                   = "PERSON_ALERTS_CHANGED"
	PersonPNDAlertsChanged                = "PERSON_PND_ALERTS_CHANGED"
	PersonCaseNotesChanged                = "PERSON_CASE_NOTES_CHANGED"
	PersonNameChanged                     = "PERSON_NAME_CHANGED"
	PersonCellLocationChanged             = "PERSON_CELL_LOCATION_CHANGED"
	PersonProtectedCharacteristicsChanged = "PERSON_PROTECTED_CHARACTERISTICS_CHANGED"
	PersonNumberOfChildrenChanged         = "PERSON_NUMBER_OF_CHILDREN_CHANGED"
	PersonPhysicalCharacteristicsChanged  = "PERSON_PHYSICAL_CHARACTERISTICS_CHANGED"
	PersonImagesChanged                   = "PERSON_IMAGES_CHANGED"
	PersonHealthAndDietChanged            = "PERSON_HEALTH_AND_DIET_CHANGED"
	PersonCareNeedsChanged                = "PERSON_CARE_NEEDS_CHANGED"
	PersonLanguagesChanged                = "PERSON_LANGUAGES_CHANGED"
	PersonResponsibleOfficerChanged       = "PERSON_RESPONSIBLE_OFFICER_CHANGED"
	PrisonerBaseLocationChanged           = "PRISONER_BASE_LOCATION_CHANGED"
	PrisonerChanged                       = "PRISONER_CHANGED"
	PrisonersChanged                      = "PRISONERS_CHANGED"
	PrisonVisitsChanged                   = "PRISON_VISITS_CHANGED"
	VisitChanged                          = "VISIT_CHANGED"
	PrisonResidentialHierarchyChanged     = "PRISON_RESIDENTIAL_HIERARCHY_CHANGED"
	PrisonLocationChanged                 = "PRISON_LOCATION_CHANGED"
	PrisonResidentialDetailsChanged       = "PRISON_RESIDENTIAL_DETAILS_CHANGED"
	PrisonCapacityChanged                 = "PRISON_CAPACITY_CHANGED"
	LicenceConditionChanged               = "LICENCE_CONDITION_CHANGED"
	PersonEducationUpdated                = "PERSON_EDUCATION_UPDATED"
	PersonEducationALNAssessmentsChanged  = "PERSON_EDUCATION_ALN_ASSESSMENTS_CHANGED"
	PLPInductionScheduleChanged           = "PLP_INDUCTION_SCHEDULE_CHANGED"
	PLPReviewScheduleChanged              = "PLP_REVIEW_SCHEDULE_CHANGED"
	SANPlanCreationScheduleChanged        = "SAN_PLAN_CREATION_SCHEDULE_CHANGED"
	SANReviewScheduleChanged              = "SAN_REVIEW_SCHEDULE_CHANGED"
)

// PrisonerMerged is the upstream event type that fans out to two notifications,
// one per prisoner number involved in the merge.
const PrisonerMerged = "prison-offender-events.prisoner.merged"

// Feature flag names gating newer event types.
const (
	FlagEducationEvents            = "education-events-enabled"
	FlagEducationALNEvents         = "education-aln-events-enabled"
	FlagPLPScheduleEvents          = "plp-schedule-events-enabled"
	FlagSANScheduleEvents          = "san-schedule-events-enabled"
	FlagResidentialHierarchyEvents = "residential-hierarchy-events-enabled"
	FlagPrisonCapacityEvents       = "prison-capacity-events-enabled"
)

// Predicate reports whether a domain event produces the given integration event type.
type Predicate func(event *eventDomain.DomainEvent) bool

// EventTypeDef is one registry entry: a stable integration event type name, the
// path template its notifications point at, its match predicate and an optional
// feature flag gate.
type EventTypeDef struct {
	Name         string
	PathTemplate string
	Predicate    Predicate
	FeatureFlag  string
}

// Upstream domain event type groups referenced by predicates.
var (
	registrationEvents = []string{
		"probation-case.registration.added",
		"probation-case.registration.updated",
		"probation-case.registration.deleted",
		"probation-case.deregistration.updated",
	}

	riskScoreEvents = []string{
		"risk-assessment.scores.ogrs.determined",
		"risk-assessment.scores.rsr.determined",
		"probation-case.risk-scores.ogrs.manual-calculation",
	}

	engagementEvents = []string{
		"probation-case.engagement.created",
		"probation-case.prison-identifier.added",
	}

	addressEvents = []string{
		"probation-case.address.created",
		"probation-case.address.updated",
		"probation-case.address.deleted",
	}

	responsibleOfficerEvents = []string{
		"person.community.manager.allocated",
		"person.community.manager.transferred",
		"probation.staff.updated",
	}

	alertEvents = []string{
		"person.alert.created",
		"person.alert.changed",
		"person.alert.updated",
		"person.alert.deleted",
	}

	contactEvents = []string{
		"prison-offender-events.prisoner.contact-added",
		"prison-offender-events.prisoner.contact-approved",
		"prison-offender-events.prisoner.contact-unapproved",
		"prison-offender-events.prisoner.contact-removed",
	}

	iepReviewEvents = []string{
		"incentives.iep-review.inserted",
		"incentives.iep-review.updated",
		"incentives.iep-review.deleted",
	}

	visitEvents = []string{
		"prison-visit.booked",
		"prison-visit.changed",
		"prison-visit.cancelled",
	}

	visitOrderEvents = []string{
		"prison-offender-events.prisoner.visit-orders.updated",
	}

	locationEvents = []string{
		"location.inside.prison.created",
		"location.inside.prison.amended",
		"location.inside.prison.deleted",
		"location.inside.prison.deactivated",
		"location.inside.prison.reactivated",
	}

	signedOpCapacityEvents = []string{
		"location.inside.prison.signed-op-cap.amended",
	}

	caseNoteEvents = []string{
		"prison.case-note.published",
	}

	licenceEvents = []string{
		"create-and-vary-a-licence.licence.activated",
		"create-and-vary-a-licence.licence.inactivated",
	}

	movementEvents = []string{
		"prisoner-offender-search.prisoner.released",
		"prisoner-offender-search.prisoner.received",
		"prison-offender-events.prisoner.released",
	}

	prisonerUpdatedEvent = "prisoner-offender-search.prisoner.updated"

	calculatedDatesEvents = []string{
		"release-date-changed",
		"sentence-dates-changed",
		"confirmed-release-date-changed",
	}
)

// Register type codes carried on registration events.
var (
	mappaRegisterTypes        = []string{"MAPP"}
	dynamicRisksRegisterTypes = []string{
		"RCCO", "RCPR", "REG22", "RVAD", "STRG", "WEAP", "RHRH",
	}
	probationStatusRegisterTypes = []string{"IWWO"}
)

// Alert codes that also surface on the PND alerts path.
var pndAlertCodes = []string{
	"BECTER", "HA", "XA", "XCA", "XEL", "XELH", "XER", "XHT", "XILLENT",
	"XIS", "XR", "XRF", "XSA", "HA2", "RCS", "RDV", "RKC", "RPB", "RPC",
	"RSS", "RST", "RVR", "SA",
}

// Categories reported by prisoner-offender-search on prisoner.updated events.
const (
	CategoryLocation        = "LOCATION"
	CategoryAlerts          = "ALERTS"
	CategorySentence        = "SENTENCE"
	CategoryStatus          = "STATUS"
	CategoryPersonalDetails = "PERSONAL_DETAILS"
	CategoryPhysicalDetails = "PHYSICAL_DETAILS"
	CategoryContactDetails  = "CONTACT_DETAILS"
)

func eventTypeIn(types ...string) Predicate {
	return func(event *eventDomain.DomainEvent) bool {
		for _, eventType := range types {
			if event.EventType == eventType {
				return true
			}
		}
		return false
	}
}

func registrationWithType(codes ...string) Predicate {
	matchesEventType := eventTypeIn(registrationEvents...)
	return func(event *eventDomain.DomainEvent) bool {
		if !matchesEventType(event) {
			return false
		}
		for _, code := range codes {
			if event.Info().RegisterTypeCode == code {
				return true
			}
		}
		return false
	}
}

func prisonerUpdatedWith(categories ...string) Predicate {
	return func(event *eventDomain.DomainEvent) bool {
		return event.EventType == prisonerUpdatedEvent && event.HasCategoryChanged(categories...)
	}
}

func alertWithPNDCode() Predicate {
	matchesEventType := eventTypeIn(alertEvents...)
	return func(event *eventDomain.DomainEvent) bool {
		if !matchesEventType(event) {
			return false
		}
		for _, code := range pndAlertCodes {
			if event.Info().AlertCode == code {
				return true
			}
		}
		return false
	}
}

// eventTypes is the full rule table. Classification is a linear scan producing
// every match, since one inbound event legitimately maps to many outgoing types.
var eventTypes = []EventTypeDef{
	{
		Name:         PersonStatusChanged,
		PathTemplate: "/v1/persons/{hmppsId}",
		Predicate: eventTypeIn(append(append([]string{}, engagementEvents...),
			PrisonerMerged)...),
	},
	{
		Name:         MappaDetailChanged,
		PathTemplate: "/v1/persons/{hmppsId}/risks/mappadetail",
		Predicate:    registrationWithType(mappaRegisterTypes...),
	},
	{
		Name:         RiskScoreChanged,
		PathTemplate: "/v1/persons/{hmppsId}/risks/scores",
		Predicate:    eventTypeIn(riskScoreEvents...),
	},
	{
		Name:         DynamicRisksChanged,
		PathTemplate: "/v1/persons/{hmppsId}/risks/dynamic",
		Predicate:    registrationWithType(dynamicRisksRegisterTypes...),
	},
	{
		Name:         ProbationStatusChanged,
		PathTemplate: "/v1/persons/{hmppsId}/status-information",
		Predicate:    registrationWithType(probationStatusRegisterTypes...),
	},
	{
		Name:         KeyDatesAndAdjustmentsPrisonerChanged,
		PathTemplate: "/v1/persons/{hmppsId}/sentences/latest-key-dates-and-adjustments",
		Predicate:    eventTypeIn(calculatedDatesEvents...),
	},
	{
		Name:         PersonSentencesChanged,
		PathTemplate: "/v1/persons/{hmppsId}/sentences",
		Predicate:    prisonerUpdatedWith(CategorySentence),
	},
	{
		Name:         PersonAddressChanged,
		PathTemplate: "/v1/persons/{hmppsId}/addresses",
		Predicate:    eventTypeIn(addressEvents...),
	},
	{
		Name:         PersonContactsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/contacts",
		Predicate:    eventTypeIn(contactEvents...),
	},
	{
		Name:         PersonContactChanged,
		PathTemplate: "/v1/persons/{hmppsId}/contacts/{contactId}",
		Predicate:    eventTypeIn(contactEvents...),
	},
	{
		Name:         PersonIEPLevelChanged,
		PathTemplate: "/v1/persons/{hmppsId}/iep-level",
		Predicate:    eventTypeIn(iepReviewEvents...),
	},
	{
		Name:         PersonVisitRestrictionsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/visit-restrictions",
		Predicate:    eventTypeIn("prison-offender-events.prisoner.restriction.changed"),
	},
	{
		Name:         PersonVisitOrdersChanged,
		PathTemplate: "/v1/persons/{hmppsId}/visit-orders",
		Predicate:    eventTypeIn(visitOrderEvents...),
	},
	{
		Name:         PersonFutureVisitsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/visit/future",
		Predicate:    eventTypeIn(visitEvents...),
	},
	{
		Name:         PersonAlertsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/alerts",
		Predicate: func(event *eventDomain.DomainEvent) bool {
			return eventTypeIn(alertEvents...)(event) ||
				prisonerUpdatedWith(CategoryAlerts)(event)
		},
	},
	{
		Name:         PersonPNDAlertsChanged,
		PathTemplate: "/v1/pnd/persons/{hmppsId}/alerts",
		Predicate:    alertWithPNDCode(),
	},
	{
		Name:         PersonCaseNotesChanged,
		PathTemplate: "/v1/persons/{hmppsId}/case-notes",
		Predicate:    eventTypeIn(caseNoteEvents...),
	},
	{
		Name:         PersonNameChanged,
		PathTemplate: "/v1/persons/{hmppsId}/name",
		Predicate:    prisonerUpdatedWith(CategoryPersonalDetails),
	},
	{
		Name:         PersonCellLocationChanged,
		PathTemplate: "/v1/persons/{hmppsId}/cell-location",
		Predicate:    prisonerUpdatedWith(CategoryLocation),
	},
	{
		Name:         PersonProtectedCharacteristicsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/protected-characteristics",
		Predicate:    prisonerUpdatedWith(CategoryPersonalDetails, CategoryPhysicalDetails),
	},
	{
		Name:         PersonNumberOfChildrenChanged,
		PathTemplate: "/v1/persons/{hmppsId}/number-of-children",
		Predicate:    eventTypeIn("personal-relationships.domestic-status.updated"),
	},
	{
		Name:         PersonPhysicalCharacteristicsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/physical-characteristics",
		Predicate:    prisonerUpdatedWith(CategoryPhysicalDetails),
	},
	{
		Name:         PersonImagesChanged,
		PathTemplate: "/v1/persons/{hmppsId}/images",
		Predicate:    prisonerUpdatedWith(CategoryPhysicalDetails),
	},
	{
		Name:         PersonHealthAndDietChanged,
		PathTemplate: "/v1/persons/{hmppsId}/health-and-diet",
		Predicate:    prisonerUpdatedWith(CategoryPhysicalDetails, CategoryPersonalDetails),
	},
	{
		Name:         PersonCareNeedsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/care-needs",
		Predicate:    prisonerUpdatedWith(CategoryPhysicalDetails),
	},
	{
		Name:         PersonLanguagesChanged,
		PathTemplate: "/v1/persons/{hmppsId}/languages",
		Predicate:    prisonerUpdatedWith(CategoryPersonalDetails),
	},
	{
		Name:         PersonResponsibleOfficerChanged,
		PathTemplate: "/v1/persons/{hmppsId}/person-responsible-officer",
		Predicate:    eventTypeIn(responsibleOfficerEvents...),
	},
	{
		Name:         PrisonerBaseLocationChanged,
		PathTemplate: "/v1/persons/{hmppsId}/prisoner-base-location",
		Predicate: func(event *eventDomain.DomainEvent) bool {
			return eventTypeIn(movementEvents...)(event) ||
				prisonerUpdatedWith(CategoryLocation)(event)
		},
	},
	{
		Name:         PrisonerChanged,
		PathTemplate: "/v1/prison/prisoners/{hmppsId}",
		Predicate: func(event *eventDomain.DomainEvent) bool {
			return event.EventType == prisonerUpdatedEvent ||
				eventTypeIn(movementEvents...)(event)
		},
	},
	{
		Name:         PrisonersChanged,
		PathTemplate: "/v1/prison/{prisonId}/prisoners",
		Predicate: func(event *eventDomain.DomainEvent) bool {
			return event.EventType == prisonerUpdatedEvent ||
				eventTypeIn(movementEvents...)(event)
		},
	},
	{
		Name:         PrisonVisitsChanged,
		PathTemplate: "/v1/prison/{prisonId}/visit/search",
		Predicate:    eventTypeIn(visitEvents...),
	},
	{
		Name:         VisitChanged,
		PathTemplate: "/v1/visit/{reference}",
		Predicate:    eventTypeIn(visitEvents...),
	},
	{
		Name:         PrisonResidentialHierarchyChanged,
		PathTemplate: "/v1/prison/{prisonId}/residential-hierarchy",
		Predicate:    eventTypeIn(locationEvents...),
		FeatureFlag:  FlagResidentialHierarchyEvents,
	},
	{
		Name:         PrisonLocationChanged,
		PathTemplate: "/v1/prison/{prisonId}/location/{key}",
		Predicate:    eventTypeIn(locationEvents...),
	},
	{
		Name:         PrisonResidentialDetailsChanged,
		PathTemplate: "/v1/prison/{prisonId}/residential-details",
		Predicate:    eventTypeIn(locationEvents...),
	},
	{
		Name:         PrisonCapacityChanged,
		PathTemplate: "/v1/prison/{prisonId}/capacity",
		Predicate:    eventTypeIn(signedOpCapacityEvents...),
		FeatureFlag:  FlagPrisonCapacityEvents,
	},
	{
		Name:         LicenceConditionChanged,
		PathTemplate: "/v1/persons/{hmppsId}/licences/conditions",
		Predicate:    eventTypeIn(licenceEvents...),
	},
	{
		Name:         PersonEducationUpdated,
		PathTemplate: "/v1/persons/{hmppsId}/education",
		Predicate:    eventTypeIn("prison.education.updated"),
		FeatureFlag:  FlagEducationEvents,
	},
	{
		Name:         PersonEducationALNAssessmentsChanged,
		PathTemplate: "/v1/persons/{hmppsId}/education/aln-assessments",
		Predicate:    eventTypeIn("prison.education-aln-assessment.updated"),
		FeatureFlag:  FlagEducationALNEvents,
	},
	{
		Name:         PLPInductionScheduleChanged,
		PathTemplate: "/v1/persons/{hmppsId}/plp-induction-schedule",
		Predicate:    eventTypeIn("plp.induction-schedule.updated"),
		FeatureFlag:  FlagPLPScheduleEvents,
	},
	{
		Name:         PLPReviewScheduleChanged,
		PathTemplate: "/v1/persons/{hmppsId}/plp-review-schedule",
		Predicate:    eventTypeIn("plp.review-schedule.updated"),
		FeatureFlag:  FlagPLPScheduleEvents,
	},
	{
		Name:         SANPlanCreationScheduleChanged,
		PathTemplate: "/v1/persons/{hmppsId}/education/san/plan-creation-schedule",
		Predicate:    eventTypeIn("san.plan-creation-schedule.updated"),
		FeatureFlag:  FlagSANScheduleEvents,
	},
	{
		Name:         SANReviewScheduleChanged,
		PathTemplate: "/v1/persons/{hmppsId}/education/san/review-schedule",
		Predicate:    eventTypeIn("san.review-schedule.updated"),
		FeatureFlag:  FlagSANScheduleEvents,
	},
}

// All returns every registered event type definition.
func All() []EventTypeDef {
	return eventTypes
}

// Lookup returns the definition with the given name.
func Lookup(name string) (EventTypeDef, bool) {
	for _, def := range eventTypes {
		if def.Name == name {
			return def, true
		}
	}
	return EventTypeDef{}, false
}

// Render substitutes the template placeholders with the given values. Returns
// ErrUnmappableURL when the template requires a placeholder that has no value.
func Render(
	def EventTypeDef,
	hmppsID string,
	prisonID string,
	info *eventDomain.AdditionalInformation,
) (string, error) {
	if info == nil {
		info = &eventDomain.AdditionalInformation{}
	}

	replacements := []struct {
		placeholder string
		value       string
	}{
		{"{hmppsId}", hmppsID},
		{"{prisonId}", prisonID},
		{"{contactId}", info.ContactPersonID},
		{"{key}", info.Key},
		{"{reference}", info.Reference},
	}

	url := def.PathTemplate
	for _, r := range replacements {
		if !strings.Contains(url, r.placeholder) {
			continue
		}
		if r.value == "" {
			return "", apperrors.Wrapf(
				apperrors.ErrUnmappableURL,
				"no value for %s rendering %s",
				r.placeholder, def.Name,
			)
		}
		url = strings.ReplaceAll(url, r.placeholder, r.value)
	}

	return url, nil
}

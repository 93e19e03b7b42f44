package services

import "quizzy/models"

// AccessPolicy decides whether an identity may see listings scoped to an email.
type AccessPolicy struct {
	// EnforceParticipantView applies the owner check to participant listings too.
	EnforceParticipantView bool
}

func (p AccessPolicy) AuthorizeAuthorView(requestedEmail string, identity *models.Identity) error {
	return ownerOnly(requestedEmail, identity)
}

func (p AccessPolicy) AuthorizeParticipantView(requestedEmail string, identity *models.Identity) error {
	if !p.EnforceParticipantView {
		return nil
	}
	return ownerOnly(requestedEmail, identity)
}

func ownerOnly(requestedEmail string, identity *models.Identity) error {
	if identity == nil {
		return models.ErrUnauthorized
	}
	if identity.Email == "" || identity.Email != requestedEmail {
		return models.ErrForbidden
	}
	return nil
}

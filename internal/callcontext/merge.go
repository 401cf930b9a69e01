package callcontext

// MergeExtracted deep-merges updates into the context's extracted state.
// Each sub-object merges independently, field by field: a non-empty update
// wins, an empty update preserves the existing value. Nothing is ever
// cleared by omission.
func (c *Context) MergeExtracted(updates Extracted) {
	c.Extracted.Contact = mergeContact(c.Extracted.Contact, updates.Contact)
	c.Extracted.Location = mergeLocation(c.Extracted.Location, updates.Location)
	c.Extracted.Problem = mergeProblem(c.Extracted.Problem, updates.Problem)
	c.Extracted.Scheduling = mergeScheduling(c.Extracted.Scheduling, updates.Scheduling)
	c.Extracted.Access = mergeAccess(c.Extracted.Access, updates.Access)
}

func mergeContact(existing, updates ContactInfo) ContactInfo {
	existing.Name = pick(existing.Name, updates.Name)
	existing.Phone = pick(existing.Phone, updates.Phone)
	existing.Email = pick(existing.Email, updates.Email)
	return existing
}

func mergeLocation(existing, updates LocationInfo) LocationInfo {
	existing.AddressLine1 = pick(existing.AddressLine1, updates.AddressLine1)
	existing.AddressLine2 = pick(existing.AddressLine2, updates.AddressLine2)
	existing.City = pick(existing.City, updates.City)
	existing.State = pick(existing.State, updates.State)
	existing.PostalCode = pick(existing.PostalCode, updates.PostalCode)
	return existing
}

func mergeProblem(existing, updates ProblemInfo) ProblemInfo {
	existing.Summary = pick(existing.Summary, updates.Summary)
	existing.Category = pick(existing.Category, updates.Category)
	existing.Urgency = pick(existing.Urgency, updates.Urgency)
	return existing
}

func mergeScheduling(existing, updates SchedulingInfo) SchedulingInfo {
	existing.PreferredDate = pick(existing.PreferredDate, updates.PreferredDate)
	existing.PreferredWindow = pick(existing.PreferredWindow, updates.PreferredWindow)
	return existing
}

func mergeAccess(existing, updates AccessInfo) AccessInfo {
	existing.Notes = pick(existing.Notes, updates.Notes)
	return existing
}

func pick(existing, update string) string {
	if update != "" {
		return update
	}
	return existing
}

package schema

// Clone returns a deep copy of the task. Stores hand out clones so callers
// can never mutate stored state through a returned pointer.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	clone := &Task{
		ID:        t.ID,
		ContextID: t.ContextID,
		Status:    t.Status.clone(),
		Metadata:  cloneMapPtr(t.Metadata),
	}
	if t.History != nil {
		clone.History = make([]Message, len(t.History))
		for i := range t.History {
			clone.History[i] = t.History[i].clone()
		}
	}
	if t.Artifacts != nil {
		clone.Artifacts = make([]Artifact, len(t.Artifacts))
		for i := range t.Artifacts {
			clone.Artifacts[i] = t.Artifacts[i].clone()
		}
	}
	return clone
}

func (s TaskStatus) clone() TaskStatus {
	out := TaskStatus{State: s.State, Timestamp: s.Timestamp}
	if s.Message != nil {
		msg := s.Message.clone()
		out.Message = &msg
	}
	out.ErrorDetails = cloneMapPtr(s.ErrorDetails)
	return out
}

func (m Message) clone() Message {
	out := Message{
		Role:      m.Role,
		TaskID:    cloneStringPtr(m.TaskID),
		ContextID: cloneStringPtr(m.ContextID),
		Metadata:  cloneMapPtr(m.Metadata),
	}
	if m.Parts != nil {
		out.Parts = make([]Part, len(m.Parts))
		for i := range m.Parts {
			out.Parts[i] = m.Parts[i].clone()
		}
	}
	if m.ReferenceTaskIDs != nil {
		out.ReferenceTaskIDs = append([]string(nil), m.ReferenceTaskIDs...)
	}
	return out
}

func (p Part) clone() Part {
	out := Part{
		Type:     p.Type,
		Text:     cloneStringPtr(p.Text),
		MimeType: cloneStringPtr(p.MimeType),
		Data:     cloneMapPtr(p.Data),
		Metadata: cloneMapPtr(p.Metadata),
	}
	if p.File != nil {
		f := *p.File
		f.Name = cloneStringPtr(p.File.Name)
		if p.File.SizeBytes != nil {
			size := *p.File.SizeBytes
			f.SizeBytes = &size
		}
		out.File = &f
	}
	return out
}

func (a Artifact) clone() Artifact {
	out := Artifact{
		ID:       a.ID,
		MimeType: cloneStringPtr(a.MimeType),
		Name:     cloneStringPtr(a.Name),
	}
	if a.Parts != nil {
		out.Parts = make([]Part, len(a.Parts))
		for i := range a.Parts {
			out.Parts[i] = a.Parts[i].clone()
		}
	}
	return out
}

// Clone returns a deep copy of the config.
func (c *PushNotificationConfig) Clone() *PushNotificationConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Authentication != nil {
		auth := *c.Authentication
		auth.Token = cloneStringPtr(c.Authentication.Token)
		auth.Key = cloneStringPtr(c.Authentication.Key)
		auth.HeaderName = cloneStringPtr(c.Authentication.HeaderName)
		auth.Username = cloneStringPtr(c.Authentication.Username)
		auth.Password = cloneStringPtr(c.Authentication.Password)
		out.Authentication = &auth
	}
	return &out
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneMapPtr(m *map[string]interface{}) *map[string]interface{} {
	if m == nil {
		return nil
	}
	out := cloneMap(*m)
	return &out
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = cloneMap(val)
		case []interface{}:
			cp := make([]interface{}, len(val))
			for i, item := range val {
				if nested, ok := item.(map[string]interface{}); ok {
					cp[i] = cloneMap(nested)
				} else {
					cp[i] = item
				}
			}
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

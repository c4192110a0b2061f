package realtime

import "context"

// Sender accepts outbound client events.
type Sender interface {
	Send(ev ClientEvent) error
}

// ImageDescriber turns an image data URI into a description.
type ImageDescriber interface {
	DescribeImage(ctx context.Context, dataURI string) (Description, error)
}

// ImageBridge injects image descriptions into the live conversation.
type ImageBridge struct {
	out Sender
}

func NewImageBridge(out Sender) *ImageBridge {
	return &ImageBridge{out: out}
}

// Inject asks the assistant to talk about desc. Without a connected session
// it fails with ErrChannelNotReady.
func (b *ImageBridge) Inject(desc Description) error {
	return b.out.Send(NewResponseCreate(ImagePromptPrefix + string(desc)))
}

// DescribeAndInject uploads the image and, only if that succeeded, injects
// the description. The description is returned in both cases where it exists.
func (b *ImageBridge) DescribeAndInject(ctx context.Context, d ImageDescriber, dataURI string) (Description, error) {
	desc, err := d.DescribeImage(ctx, dataURI)
	if err != nil {
		return "", err
	}
	return desc, b.Inject(desc)
}

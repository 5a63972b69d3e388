package messages

import (
	"fmt"
	"sort"
	"strings"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func Title(text string) string {
	return fmt.Sprintf("✨ <b>%s</b>", Escape(text))
}

func FileLine(fileName string) string {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("📄 <b>File:</b> %s", Escape(name))
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return Escape(s)
}

func Started(botName string) string {
	return fmt.Sprintf("%s ✅✅ BOT started successfully ✅✅", Escape(botName))
}

// Join requests and relay

func JoinWelcome() string {
	return "👋 Hi! Your join request was received. Please wait for approval."
}

func RelayReplyHint() string {
	return "🔁 Please reply to a forwarded message."
}

func RelayUnknownSender() string {
	return "⚠️ Can't find original sender."
}

func RelayFailed(err error) string {
	return "❌ Failed to send message: " + fmt.Sprintf("<code>%s</code>", Escape(err.Error()))
}

// Broadcast

func BroadcastUnauthorized() string {
	return "🚫 You are not authorized to use this command."
}

func BroadcastNeedsReply() string {
	return "📢 Reply to the message you want to broadcast with /broadcast."
}

func BroadcastStarted(total int) string {
	return fmt.Sprintf("📢 Broadcast started...\n✅ Sent: 0\n❌ Failed: 0\n⏳ Total: %d", total)
}

func BroadcastProgress(sent, failed, processed, total int) string {
	return fmt.Sprintf("📢 Broadcasting...\n✅ Sent: %d\n❌ Failed: %d\n📦 Batch: %d/%d", sent, failed, processed, total)
}

func BroadcastDone(sent, failed, total int) string {
	return fmt.Sprintf("✅ Broadcast complete!\n\n📬 Sent: %d\n❌ Failed: %d\n👥 Total: %d", sent, failed, total)
}

// Media job stages

func StageDownloading() string {
	return "📥 Downloading file..."
}

func StageFetchingAsset() string {
	return "🖼 Downloaded. Fetching overlay assets..."
}

func StageProbing() string {
	return "🔎 Inspecting streams..."
}

func StageTranscoding(plugin string) string {
	return fmt.Sprintf("⚙️ Processing (%s)...", Escape(plugin))
}

func StageUploading() string {
	return "📤 Processing complete. Uploading..."
}

func StageDone() string {
	return "✅ Uploaded successfully!"
}

func QueueQueued(fileName string, position int) string {
	return fmt.Sprintf("⏳ <b>Queued:</b> %d\n%s", position, FileLine(fileName))
}

func QueueStarted(fileName string) string {
	return "⚙️ <b>Processing started</b>\n" + FileLine(fileName)
}

// Media job failures. Exactly one of these reaches the user per failed job.

func ErrorDownload() string {
	return "🚫 Failed to download the file."
}

func ErrorAuxiliaryFetch(asset string) string {
	return fmt.Sprintf("🚫 Failed to download the %s.", Escape(asset))
}

func ErrorMissingStream(kind string) string {
	return fmt.Sprintf("🚫 No %s stream found in the file.", Escape(kind))
}

func ErrorTransform(diagnostic string) string {
	msg := "🚫 <b>Processing failed</b>"
	if strings.TrimSpace(diagnostic) != "" {
		msg += "\n\n" + fmt.Sprintf("<code>%s</code>", Escape(diagnostic))
	}
	return msg
}

func ErrorUpload() string {
	return "🚫 Failed to upload the result. Please try again."
}

func ErrorDefault() string {
	return "🚫 <b>An unexpected error occurred</b>\nPlease try again."
}

func ErrorQueueFull() string {
	return "⚠️ Too many files are being processed right now. Please try again later."
}

func SendVideoHint() string {
	return "Please send a video file to process."
}

// Settings and commands

func StartWelcome() string {
	return "🤖 <b>Advanced File Rename Bot</b>\n" +
		"<i>With Watermarking, Metadata Editing &amp; File Combining</i>\n\n" +
		"🔹 <b>Main Features:</b>\n" +
		"- ✏️ Rename files with custom prefix/suffix\n" +
		"- 🖼️ Cover thumbnails for videos\n" +
		"- 💧 Add watermarks to videos\n" +
		"- 🎵 Edit audio/video metadata\n" +
		"- 🔀 Combine multiple files (videos/audio/PDFs)\n\n" +
		"📌 <b>Basic Commands:</b>\n" +
		"/start - Show this help message\n" +
		"/help - Show detailed help\n" +
		"/settings - View your current settings\n\n" +
		"🔄 <b>File Renaming:</b>\n" +
		"/rename [new_name] - Rename a file (reply to file)\n" +
		"/r [new_name] - Shortcut for /rename\n\n" +
		"💧 <b>Watermarking:</b>\n" +
		"/setwatermark [text] - Set watermark text\n" +
		"/wm [text] - Shortcut for /setwatermark\n" +
		"<i>Options:</i> position=, opacity=, size=\n" +
		"<i>Example:</i> <code>/setwatermark @Channel position=center opacity=70 size=30</code>\n" +
		"/watermark - Watermark a video (reply to video)\n\n" +
		"📝 <b>Metadata Editing:</b>\n" +
		"/setmetadata - Set file metadata\n" +
		"/meta - Shortcut for /setmetadata\n" +
		"<i>Example:</i> <code>/setmetadata title=\"My Song\" artist=\"Artist\"</code>\n" +
		"/showmetadata - View file metadata (reply to file)\n\n" +
		"🔀 <b>File Combining:</b>\n" +
		"/combine - Start combine mode (reply to first file)\n" +
		"/merge - Alias for /combine\n" +
		"/finishcombine [name] - Finish combining files\n" +
		"/cancelcombine - Cancel combine operation\n\n" +
		"⚙️ <b>Prefix/Suffix:</b>\n" +
		"/setprefix [text] - Set filename prefix\n" +
		"/setsuffix [text] - Set filename suffix\n\n" +
		"📊 <b>Current Limitations:</b>\n" +
		"- Max combined file size: 500MB\n" +
		"- Supported combine types: MP4, MP3, PDF"
}

type SettingsView struct {
	Prefix            string
	Suffix            string
	WatermarkText     string
	WatermarkPosition string
	WatermarkOpacity  int
	WatermarkSize     int
	MetadataTitle     string
	MetadataArtist    string
	MetadataAlbum     string
	CombineActive     bool
	CombineFiles      int
	CombineType       string
	RenameCount       int
}

func Settings(v SettingsView) string {
	combine := "❌"
	if v.CombineActive {
		combine = "✅"
	}
	return "⚙️ <b>Your Settings</b>\n\n" +
		fmt.Sprintf("🔹 Prefix: <code>%s</code>\n", orNone(v.Prefix)) +
		fmt.Sprintf("🔹 Suffix: <code>%s</code>\n", orNone(v.Suffix)) +
		fmt.Sprintf("🔹 Watermark: <code>%s</code>\n", orNone(v.WatermarkText)) +
		fmt.Sprintf("  - Position: <code>%s</code>\n", Escape(v.WatermarkPosition)) +
		fmt.Sprintf("  - Opacity: <code>%d%%</code>\n", v.WatermarkOpacity) +
		fmt.Sprintf("  - Size: <code>%d</code>\n", v.WatermarkSize) +
		"🔹 Metadata:\n" +
		fmt.Sprintf("  - Title: <code>%s</code>\n", orNone(v.MetadataTitle)) +
		fmt.Sprintf("  - Artist: <code>%s</code>\n", orNone(v.MetadataArtist)) +
		fmt.Sprintf("  - Album: <code>%s</code>\n", orNone(v.MetadataAlbum)) +
		fmt.Sprintf("🔹 Combine Mode: %s\n", combine) +
		fmt.Sprintf("  - Files: %d\n", v.CombineFiles) +
		fmt.Sprintf("  - Type: <code>%s</code>\n", orNone(v.CombineType)) +
		fmt.Sprintf("🔹 Total Renames: %d", v.RenameCount)
}

func PrefixUpdated(prefix string) string {
	if prefix == "" {
		return "✅ Prefix removed."
	}
	return fmt.Sprintf("✅ Prefix set to <code>%s</code>", Escape(prefix))
}

func SuffixUpdated(suffix string) string {
	if suffix == "" {
		return "✅ Suffix removed."
	}
	return fmt.Sprintf("✅ Suffix set to <code>%s</code>", Escape(suffix))
}

func WatermarkUsage() string {
	return "Please provide watermark text. Example: /setwatermark MyWatermark\n\n" +
		"Options:\n" +
		"position=top-left|top-right|bottom-left|bottom-right|center\n" +
		"opacity=0-100\n" +
		"size=10-50\n\n" +
		"Example: <code>/setwatermark @MyChannel position=center opacity=70 size=30</code>"
}

func WatermarkUpdated(text, position string, opacity, size int) string {
	return "✅ Watermark settings updated:\n" +
		fmt.Sprintf("Text: <code>%s</code>\n", orNone(text)) +
		fmt.Sprintf("Position: <code>%s</code>\n", Escape(position)) +
		fmt.Sprintf("Opacity: <code>%d%%</code>\n", opacity) +
		fmt.Sprintf("Size: <code>%d</code>", size)
}

func InvalidOption(err error) string {
	return "⚠️ " + Escape(err.Error())
}

func MetadataUsage() string {
	return "Please provide metadata to set. Example:\n" +
		"<code>/setmetadata title=\"My Title\" artist=\"My Artist\" album=\"My Album\"</code>"
}

func MetadataInvalid() string {
	return "Invalid format. Use: <code>/setmetadata title=\"My Title\" artist=\"Name\"</code>"
}

func MetadataUpdated() string {
	return "✅ Metadata settings updated."
}

func ReplyToFile(action string) string {
	return fmt.Sprintf("Please reply to a file, video, or audio message to %s.", Escape(action))
}

func RenameUsage() string {
	return "Please provide a new name. Example: /rename NewFileName"
}

func RenameCaption(username, original string) string {
	by := "you"
	if strings.TrimSpace(username) != "" {
		by = "@" + username
	}
	return fmt.Sprintf("📁 Renamed by %s\n🔹 Original: <code>%s</code>", Escape(by), Escape(original))
}

func FileTooLarge(limitMB int64) string {
	return fmt.Sprintf("🚫 File is too large. Limit: %dMB", limitMB)
}

func Metadata(tags map[string]string) string {
	if len(tags) == 0 {
		return "No metadata found or could not extract metadata."
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("📋 <b>File Metadata</b>\n\n")
	for _, k := range keys {
		label := k
		if label != "" {
			label = strings.ToUpper(label[:1]) + label[1:]
		}
		fmt.Fprintf(&b, "🔹 %s: <code>%s</code>\n", Escape(label), Escape(tags[k]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Combine mode

func CombineHelp(types []string, limitMB int64) string {
	return "🔀 <b>Combine Files</b>\n\n" +
		"To combine multiple files into one:\n" +
		"1. Reply to a file with /combine\n" +
		"2. Send more files of the same type\n" +
		"3. Use /finishcombine [output_name] when done\n\n" +
		fmt.Sprintf("Supported types: %s\n", strings.Join(types, ", ")) +
		fmt.Sprintf("Max combined size: %dMB", limitMB)
}

func CombineAlreadyActive() string {
	return "You're already in combine mode! Send files to combine.\n\n" +
		"When done, use /finishcombine [output_name] to merge files.\n" +
		"Or /cancelcombine to cancel."
}

func CombineUnsupported(ext string, types []string) string {
	return fmt.Sprintf("File type %s not supported for combining.\nSupported types: %s", Escape(ext), strings.Join(types, ", "))
}

func CombineStarted(ext string) string {
	return fmt.Sprintf("🔀 Combine mode started for %s files.\n", Escape(ext)) +
		"Send me more files of the same type to combine.\n\n" +
		"When done, use /finishcombine [output_name] to merge files.\n" +
		"Or /cancelcombine to cancel."
}

func CombineFileAdded(count int) string {
	return fmt.Sprintf("➕ File added. %d files queued for combining.", count)
}

func CombineWrongType(want string) string {
	return fmt.Sprintf("⚠️ Combine mode expects %s files.", Escape(want))
}

func CombineNotActive() string {
	return "You're not in combine mode. Use /combine to start."
}

func CombineNeedMore() string {
	return "You need at least 2 files to combine. Send more files or /cancelcombine."
}

func CombineTooLarge(totalMB, limitMB int64) string {
	return fmt.Sprintf("Total size (%dMB) exceeds limit (%dMB).\nPlease try with fewer/smaller files.", totalMB, limitMB)
}

func CombineCanceled() string {
	return "✅ Combine mode canceled."
}

func CombineNothingToCancel() string {
	return "You're not in combine mode."
}

func CombineCaption(count int, sizeBytes int64) string {
	return fmt.Sprintf("🔀 Combined %d files\n📦 Size: %dKB", count, sizeBytes/1024)
}

func ThumbnailCaption(tag, title string) string {
	return Escape(tag + " " + title)
}

func WatermarkCaption(text, title string) string {
	return fmt.Sprintf("Watermarked by %s - %s", Escape(text), Escape(title))
}

// Buttons

func BtnBotUpdates() string    { return "Bot Updates" }
func BtnAddToGroup() string    { return "Add to Group" }
func BtnAddToChannel() string  { return "Add to Channel" }
func BtnHelpRename() string    { return "Rename Help" }
func BtnHelpWatermark() string { return "Watermark Help" }
func BtnHelpMetadata() string  { return "Metadata Help" }
func BtnHelpCombine() string   { return "Combine Help" }
func BtnCloseHelp() string     { return "Close Help" }
func BtnBackToHelp() string    { return "« Back to Main Help" }

// Help topics

func HelpRename() string {
	return "📌 <b>File Renaming Help</b>\n\n" +
		"To rename a file:\n" +
		"1. Reply to a file with <code>/rename NewName</code>\n" +
		"2. The bot will apply your prefix/suffix settings\n\n" +
		"🔹 <b>Examples:</b>\n" +
		"- <code>/rename MyFile</code> → \"PrefixMyFileSuffix.ext\"\n" +
		"- <code>/r Shortcut</code> → Works like /rename\n\n" +
		"⚙️ <b>Related Commands:</b>\n" +
		"/setprefix - Set filename prefix\n" +
		"/setsuffix - Set filename suffix"
}

func HelpWatermark() string {
	return "💧 <b>Watermarking Help</b>\n\n" +
		"Add text watermarks to images/videos:\n\n" +
		"🔹 <b>Basic Usage:</b>\n" +
		"<code>/setwatermark YourText</code>\n\n" +
		"⚙️ <b>Advanced Options:</b>\n" +
		"- <code>position=</code> top-left, top-right, bottom-left, bottom-right, center\n" +
		"- <code>opacity=</code> 0-100 (transparency)\n" +
		"- <code>size=</code> Font size (10-50)\n\n" +
		"🔹 <b>Example:</b>\n" +
		"<code>/setwatermark @Channel position=center opacity=70 size=30</code>\n\n" +
		"📝 <b>Notes:</b>\n" +
		"- Works on images (JPG/PNG) and videos (MP4)\n" +
		"- Watermark is applied during /rename\n" +
		"- Use /setwatermark with no text to remove"
}

func HelpMetadata() string {
	return "📝 <b>Metadata Editing Help</b>\n\n" +
		"🔹 <b>Supported Formats:</b>\n" +
		"- Audio: MP3, FLAC, WAV, M4A\n" +
		"- Video: MP4, MOV, AVI\n\n" +
		"🔹 <b>Usage:</b>\n" +
		"<code>/setmetadata title=\"Title\" artist=\"Artist\" album=\"Album\"</code>\n\n" +
		"🔍 <b>View Metadata:</b>\n" +
		"Reply to a file with <code>/showmetadata</code>\n\n" +
		"📌 Metadata editing works when using /rename"
}

func HelpCombine(types []string, limitMB int64) string {
	return "🔀 <b>File Combining Help</b>\n\n" +
		fmt.Sprintf("🔹 <b>Supported Types:</b> %s\n\n", strings.Join(types, ", ")) +
		"🔹 <b>How to Combine:</b>\n" +
		"1. Reply to first file with <code>/combine</code>\n" +
		"2. Send more files of same type\n" +
		"3. Use <code>/finishcombine OutputName</code> when done\n\n" +
		fmt.Sprintf("⚙️ Max combined size: %dMB\n", limitMB) +
		"Use <code>/cancelcombine</code> to abort"
}

func HelpSelectTopic() string {
	return "ℹ️ Select a help topic from the buttons"
}
